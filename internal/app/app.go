// Package app implements the business operations of the shop backend.
// Every operation runs its own load-mutate-save cycle against the
// document store; nothing is cached across calls.
package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NgumtsaB/web-programming-project/internal/store"
	"github.com/NgumtsaB/web-programming-project/pkg/auth"
	"github.com/NgumtsaB/web-programming-project/pkg/domain"
)

// Config wires required dependencies for the application core.
type Config struct {
	Store *store.Store
}

// App exposes the shop's business operations over the document store.
type App struct {
	store *store.Store
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("app: store is required")
	}
	return &App{store: cfg.Store}, nil
}

// RegisterInput carries the registration payload. Role is taken as given
// and defaults to customer; the server does not restrict self-assigned
// roles (bootstrap-admin remains the sanctioned path for the first admin).
type RegisterInput struct {
	Firstname string
	Lastname  string
	Email     string
	Password  string
	Role      domain.UserRole
}

// Register creates a user and issues a session token.
func (a *App) Register(in RegisterInput) (domain.User, string, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if in.Firstname == "" || in.Lastname == "" || email == "" || in.Password == "" {
		return domain.User{}, "", ErrMissingFields
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return domain.User{}, "", err
	}
	role := in.Role
	if role == "" {
		role = domain.RoleCustomer
	}

	doc, err := a.store.Load()
	if err != nil {
		return domain.User{}, "", err
	}
	for _, u := range doc.Users {
		if strings.ToLower(u.Email) == email {
			return domain.User{}, "", ErrEmailAlreadyUsed
		}
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:        store.NextID(doc.Users, func(u domain.User) int { return u.ID }),
		Firstname: in.Firstname,
		Lastname:  in.Lastname,
		Email:     email,
		Password:  hash,
		Role:      role,
		CreatedAt: time.Now().Unix(),
	}
	doc.Users = append(doc.Users, user)
	if err := a.store.Save(doc); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}

	token, err := a.store.CreateToken(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	doc, err := a.store.Load()
	if err != nil {
		return domain.User{}, "", err
	}
	for _, u := range doc.Users {
		if strings.ToLower(u.Email) != email {
			continue
		}
		if !auth.CheckPassword(password, u.Password) {
			return domain.User{}, "", ErrInvalidCredentials
		}
		token, err := a.store.CreateToken(u.ID)
		if err != nil {
			return domain.User{}, "", fmt.Errorf("issue session: %w", err)
		}
		return u, token, nil
	}
	return domain.User{}, "", ErrInvalidCredentials
}

// Logout revokes a session token. Unknown tokens are a no-op.
func (a *App) Logout(token string) error {
	return a.store.RevokeToken(token)
}

// UserFromToken resolves a live session token to its user.
func (a *App) UserFromToken(token string) (domain.User, bool, error) {
	return a.store.ResolveToken(token)
}

// BootstrapAdmin creates the first admin account. When an admin already
// exists it reports created=false and changes nothing. Defaults mirror
// the original dev bootstrap route.
func (a *App) BootstrapAdmin(email, password string) (domain.User, string, bool, error) {
	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "password"
	}
	doc, err := a.store.Load()
	if err != nil {
		return domain.User{}, "", false, err
	}
	for _, u := range doc.Users {
		if u.Role == domain.RoleAdmin {
			return domain.User{}, "", false, nil
		}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", false, fmt.Errorf("hash password: %w", err)
	}
	admin := domain.User{
		ID:        store.NextID(doc.Users, func(u domain.User) int { return u.ID }),
		Firstname: "Admin",
		Lastname:  "User",
		Email:     strings.ToLower(email),
		Password:  hash,
		Role:      domain.RoleAdmin,
		CreatedAt: time.Now().Unix(),
	}
	doc.Users = append(doc.Users, admin)
	if err := a.store.Save(doc); err != nil {
		return domain.User{}, "", false, fmt.Errorf("save admin: %w", err)
	}
	token, err := a.store.CreateToken(admin.ID)
	if err != nil {
		return domain.User{}, "", false, fmt.Errorf("issue session: %w", err)
	}
	return admin, token, true, nil
}
