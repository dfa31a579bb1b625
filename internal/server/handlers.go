package server

import (
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/NgumtsaB/web-programming-project/internal/app"
	"github.com/NgumtsaB/web-programming-project/pkg/domain"
)

const maxImageUploadBytes = 10 << 20

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.allowRate(w, r, s.registerLimiter, "too many registration attempts") {
		return
	}
	var body struct {
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Role      string `json:"role"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeAppError(w, err)
		return
	}
	user, token, err := s.app.Register(app.RegisterInput{
		Firstname: body.Firstname,
		Lastname:  body.Lastname,
		Email:     body.Email,
		Password:  body.Password,
		Role:      domain.UserRole(body.Role),
	})
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.audit(r, "shop.register", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "registered",
		"token":   token,
		"user":    user.Public(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeAppError(w, err)
		return
	}
	user, token, err := s.app.Login(body.Email, body.Password)
	if err != nil {
		s.audit(r, "shop.login", "fail")
		s.writeAppError(w, err)
		return
	}
	s.audit(r, "shop.login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "ok",
		"token":   token,
		"user":    user.Public(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token, _ := bearerToken(r)
	if err := s.app.Logout(token); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleBootstrapAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeAppError(w, err)
		return
	}
	_, token, created, err := s.app.BootstrapAdmin(body.Email, body.Password)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, map[string]string{"message": "admin exists"})
		return
	}
	s.audit(r, "shop.bootstrap_admin", "success")
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "admin created",
		"token":   token,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cats, err := s.app.ListCategories()
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cats)
	case http.MethodPost:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		var body struct {
			Name string `json:"name"`
			Slug string `json:"slug"`
		}
		if err := decodeJSON(r, &body); err != nil {
			s.writeAppError(w, err)
			return
		}
		cat, err := s.app.CreateCategory(body.Name, body.Slug)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, cat)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r.URL.Path, "/api/categories/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPut:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		var body struct {
			Name *string `json:"name"`
			Slug *string `json:"slug"`
		}
		if err := decodeJSON(r, &body); err != nil {
			s.writeAppError(w, err)
			return
		}
		cat, err := s.app.UpdateCategory(id, app.CategoryPatch{Name: body.Name, Slug: body.Slug})
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cat)
	case http.MethodDelete:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		if err := s.app.DeleteCategory(id); err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := app.ProductQuery{
			Q:    r.URL.Query().Get("q"),
			Sort: r.URL.Query().Get("sort"),
		}
		if v := r.URL.Query().Get("category_id"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				query.CategoryID = n
			}
		}
		prods, err := s.app.ListProducts(query)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prods)
	case http.MethodPost:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		s.createProduct(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// createProduct accepts either a JSON body or a multipart form with
// image uploads.
func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var in app.ProductInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		in.Title = r.FormValue("title")
		in.Description = r.FormValue("description")
		in.Price, _ = strconv.ParseFloat(r.FormValue("price"), 64)
		in.CategoryID, _ = strconv.Atoi(r.FormValue("category_id"))
		in.Stock, _ = strconv.Atoi(r.FormValue("stock"))
		in.Images = []string{}
		if s.images != nil && r.MultipartForm != nil {
			for _, header := range r.MultipartForm.File["images"] {
				file, err := header.Open()
				if err != nil {
					writeError(w, http.StatusBadRequest, "unreadable image upload")
					return
				}
				name, err := s.images.SaveImage(header.Filename, file)
				file.Close()
				if err != nil {
					s.writeAppError(w, err)
					return
				}
				in.Images = append(in.Images, path.Join("static/images", name))
			}
		}
	} else {
		var body struct {
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Price       float64  `json:"price"`
			CategoryID  int      `json:"category_id"`
			Stock       int      `json:"stock"`
			Images      []string `json:"images"`
		}
		if err := decodeJSON(r, &body); err != nil {
			s.writeAppError(w, err)
			return
		}
		in = app.ProductInput{
			Title:       body.Title,
			Description: body.Description,
			Price:       body.Price,
			CategoryID:  body.CategoryID,
			Stock:       body.Stock,
			Images:      body.Images,
		}
	}
	product, err := s.app.CreateProduct(in)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleProductSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/products/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if len(parts) == 1 {
		s.handleProductByID(w, r, id)
		return
	}
	if len(parts) == 2 {
		switch {
		case parts[1] == "like" && r.Method == http.MethodPost:
			user, ok := s.requireUser(w, r)
			if !ok {
				return
			}
			if _, err := s.app.ToggleLike(user.ID, id); err != nil {
				s.writeAppError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
			return
		case parts[1] == "comment" && r.Method == http.MethodPost:
			user, ok := s.requireUser(w, r)
			if !ok {
				return
			}
			var body struct {
				Content string `json:"content"`
				Rating  int    `json:"rating"`
			}
			if err := decodeJSON(r, &body); err != nil {
				s.writeAppError(w, err)
				return
			}
			comment, err := s.app.CreateComment(user.ID, id, body.Content, body.Rating)
			if err != nil {
				s.writeAppError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, comment)
			return
		case parts[1] == "comments" && r.Method == http.MethodGet:
			comments, err := s.app.ListComments(id)
			if err != nil {
				s.writeAppError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, comments)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not found")
}

func (s *Server) handleProductByID(w http.ResponseWriter, r *http.Request, id int) {
	switch r.Method {
	case http.MethodGet:
		product, err := s.app.GetProduct(id)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodPut:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		var body struct {
			Title       *string   `json:"title"`
			Description *string   `json:"description"`
			Price       *float64  `json:"price"`
			CategoryID  *int      `json:"category_id"`
			Stock       *int      `json:"stock"`
			Likes       *int      `json:"likes"`
			Views       *int      `json:"views"`
			Images      *[]string `json:"images"`
		}
		if err := decodeJSON(r, &body); err != nil {
			s.writeAppError(w, err)
			return
		}
		product, err := s.app.UpdateProduct(id, app.ProductPatch{
			Title:       body.Title,
			Description: body.Description,
			Price:       body.Price,
			CategoryID:  body.CategoryID,
			Stock:       body.Stock,
			Likes:       body.Likes,
			Views:       body.Views,
			Images:      body.Images,
		})
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodDelete:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		if err := s.app.DeleteProduct(id); err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		orders, err := s.app.ListOrders(user)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	case http.MethodPost:
		var body struct {
			Items   []domain.OrderItem `json:"items"`
			Address map[string]any     `json:"address"`
		}
		if err := decodeJSON(r, &body); err != nil {
			s.writeAppError(w, err)
			return
		}
		order, err := s.app.PlaceOrder(user.ID, body.Items, body.Address)
		if err != nil {
			// A missing product in an order is a bad request, not a 404:
			// the order resource itself was never created.
			if errors.Is(err, app.ErrProductNotFound) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, order)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleOrderByID(w http.ResponseWriter, r *http.Request, _ domain.User) {
	id, ok := pathID(w, r.URL.Path, "/api/orders/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPut:
		var body struct {
			Status  *string             `json:"status"`
			Items   *[]domain.OrderItem `json:"items"`
			Total   *float64            `json:"total"`
			Address *map[string]any     `json:"address"`
		}
		if err := decodeJSON(r, &body); err != nil {
			s.writeAppError(w, err)
			return
		}
		order, err := s.app.UpdateOrder(id, app.OrderPatch{
			Status:  body.Status,
			Items:   body.Items,
			Total:   body.Total,
			Address: body.Address,
		})
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	case http.MethodDelete:
		if err := s.app.DeleteOrder(id); err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	view, err := s.app.Stats()
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// pathID extracts the trailing integer id, writing a 404 when absent.
func pathID(w http.ResponseWriter, urlPath, prefix string) (int, bool) {
	rest := strings.Trim(strings.TrimPrefix(urlPath, prefix), "/")
	id, err := strconv.Atoi(rest)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}
