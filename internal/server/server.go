// Package server exposes the shop API over HTTP. Handlers are thin:
// they decode the request, call into the app core, and map failure
// kinds to statuses.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NgumtsaB/web-programming-project/internal/app"
	"github.com/NgumtsaB/web-programming-project/internal/ratelimit"
	"github.com/NgumtsaB/web-programming-project/internal/storage"
	"github.com/NgumtsaB/web-programming-project/internal/util"
	"github.com/NgumtsaB/web-programming-project/pkg/auth"
	"github.com/NgumtsaB/web-programming-project/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App       *app.App
	Images    *storage.FileStore // nil disables image uploads
	StaticDir string             // "" disables /static/ file serving

	// Redis-backed rate limiting for register/login; empty addr disables it.
	RedisAddr                  string
	RedisPassword              string
	RegisterRateLimitPerMinute int
	LoginRateLimitPerMinute    int

	TrustedProxyCIDRs []string
}

// Server exposes HTTP endpoints for the shop backend.
type Server struct {
	app             *app.App
	images          *storage.FileStore
	mux             *http.ServeMux
	trusted         *util.TrustedProxies
	registerLimiter *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app is required")
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:     cfg.App,
		images:  cfg.Images,
		mux:     http.NewServeMux(),
		trusted: trusted,
	}
	if cfg.RedisAddr != "" {
		registerLimit := cfg.RegisterRateLimitPerMinute
		if registerLimit <= 0 {
			registerLimit = 5
		}
		loginLimit := cfg.LoginRateLimitPerMinute
		if loginLimit <= 0 {
			loginLimit = 10
		}
		s.registerLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "shop:ratelimit:register", registerLimit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init register limiter: %w", err)
		}
		s.loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "shop:ratelimit:login", loginLimit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init login limiter: %w", err)
		}
	}
	s.routes(cfg.StaticDir)
	return s, nil
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog("shop", s.mux))))
}

func (s *Server) routes(staticDir string) {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/register", s.handleRegister)
	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.Handle("/api/logout", s.authenticated(s.handleLogout))
	s.mux.HandleFunc("/api/bootstrap-admin", s.handleBootstrapAdmin)

	// catalogue
	s.mux.HandleFunc("/api/categories", s.handleCategories)
	s.mux.HandleFunc("/api/categories/", s.handleCategoryByID)
	s.mux.HandleFunc("/api/products", s.handleProducts)
	s.mux.HandleFunc("/api/products/", s.handleProductSubtree)
	s.mux.HandleFunc("/api/stats", s.handleStats)

	// orders
	s.mux.Handle("/api/orders", s.authenticated(s.handleOrders))
	s.mux.Handle("/api/orders/", s.adminOnly(s.handleOrderByID))

	if staticDir != "" {
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		next(w, r, user)
	})
}

func (s *Server) adminOnly(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.requireAdmin(w, r)
		if !ok {
			return
		}
		next(w, r, user)
	})
}

// requireUser resolves the bearer token to a user or writes the failure.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "shop.authorize", "fail", "reason", "missing_token")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}
	user, found, err := s.app.UserFromToken(token)
	if err != nil {
		s.audit(r, "shop.authorize", "fail", "reason", "store_error")
		writeError(w, http.StatusInternalServerError, "internal error")
		return domain.User{}, false
	}
	if !found {
		s.audit(r, "shop.authorize", "fail", "reason", "invalid_or_expired_token")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}
	s.audit(r, "shop.authorize", "success", "user_id", user.ID)
	return user, true
}

// requireAdmin additionally enforces the admin role, distinguishing
// forbidden from unauthorized.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return domain.User{}, false
	}
	if user.Role != domain.RoleAdmin {
		s.audit(r, "shop.admin.authorize", "fail", "user_id", user.ID, "reason", "forbidden")
		writeError(w, http.StatusForbidden, "admin only")
		return domain.User{}, false
	}
	return user, true
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + s.clientIP(r)
	if limiter.Allow(key) {
		return true
	}
	s.audit(r, "shop.ratelimit", "fail", "path", r.URL.Path)
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func (s *Server) clientIP(r *http.Request) string {
	return util.ClientIP(r, s.trusted)
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", s.clientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusForError maps app failure kinds to HTTP statuses. Handlers with
// endpoint-specific mappings check those first.
func statusForError(err error) int {
	switch {
	case errors.Is(err, app.ErrMissingFields),
		errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, app.ErrEmailAlreadyUsed),
		errors.Is(err, app.ErrNoItems),
		errors.Is(err, app.ErrInsufficientStock),
		errors.Is(err, app.ErrMissingContent):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrCategoryNotFound),
		errors.Is(err, app.ErrProductNotFound),
		errors.Is(err, app.ErrOrderNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		slog.Error("operation failed", "err", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json body: %w", app.ErrInvalidInput)
	}
	return nil
}
