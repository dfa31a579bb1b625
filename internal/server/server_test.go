package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/NgumtsaB/web-programming-project/internal/app"
	"github.com/NgumtsaB/web-programming-project/internal/store"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "db.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	core, err := app.New(app.Config{Store: s})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	cfg.App = core
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func bootstrapAdmin(t *testing.T, baseURL string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, baseURL+"/api/bootstrap-admin", "", map[string]string{})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("bootstrap admin: status %d body %v", resp.StatusCode, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("bootstrap admin returned no token")
	}
	return token
}

func registerCustomer(t *testing.T, baseURL, email string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, baseURL+"/api/register", "", map[string]string{
		"firstname": "Test",
		"lastname":  "Customer",
		"email":     email,
		"password":  "Sup3r#Secret!",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d body %v", resp.StatusCode, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("register returned no token")
	}
	return token
}

func TestAuthRequiredAndRoleEnforcement(t *testing.T) {
	ts := newTestServer(t, Config{})

	// Missing token.
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/orders", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d, want 401", resp.StatusCode)
	}

	// Garbage token.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/orders", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d, want 401", resp.StatusCode)
	}

	// Valid customer on an admin route is forbidden, not unauthorized.
	customer := registerCustomer(t, ts.URL, "c@example.com")
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/categories", customer, map[string]string{"name": "X"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("customer on admin route: status %d, want 403", resp.StatusCode)
	}

	// Admin passes.
	admin := bootstrapAdmin(t, ts.URL)
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/categories", admin, map[string]string{"name": "Mugs"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin create category: status %d, want 201", resp.StatusCode)
	}

	// Logout revokes the token.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/logout", customer, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/orders", customer, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked token: status %d, want 401", resp.StatusCode)
	}
}

func TestRegisterLoginOrderFlow(t *testing.T) {
	ts := newTestServer(t, Config{})
	admin := bootstrapAdmin(t, ts.URL)

	// Admin sets up the catalogue.
	resp, cat := doJSON(t, http.MethodPost, ts.URL+"/api/categories", admin, map[string]any{"name": "Ceramics"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create category: status %d", resp.StatusCode)
	}
	resp, product := doJSON(t, http.MethodPost, ts.URL+"/api/products", admin, map[string]any{
		"title":       "Mug",
		"price":       7.55,
		"category_id": int(cat["id"].(float64)),
		"stock":       5,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product: status %d body %v", resp.StatusCode, product)
	}
	productID := int(product["id"].(float64))

	// A customer registers, logs in again, and orders.
	registerCustomer(t, ts.URL, "buyer@example.com")
	resp, login := doJSON(t, http.MethodPost, ts.URL+"/api/login", "", map[string]string{
		"email":    "buyer@example.com",
		"password": "Sup3r#Secret!",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d body %v", resp.StatusCode, login)
	}
	customer := login["token"].(string)

	resp, order := doJSON(t, http.MethodPost, ts.URL+"/api/orders", customer, map[string]any{
		"items":   []map[string]any{{"product_id": productID, "quantity": 2}},
		"address": map[string]any{"city": "Yaounde"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("place order: status %d body %v", resp.StatusCode, order)
	}
	if order["status"] != "pending" {
		t.Fatalf("order status = %v, want pending", order["status"])
	}
	if order["total"].(float64) != 15.10 {
		t.Fatalf("order total = %v, want 15.10", order["total"])
	}

	// Stock was deducted.
	resp, got := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/products/%d", ts.URL, productID), "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get product: status %d", resp.StatusCode)
	}
	if got["stock"].(float64) != 3 {
		t.Fatalf("stock = %v, want 3", got["stock"])
	}

	// Ordering more than remaining stock fails with a bad request.
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/orders", customer, map[string]any{
		"items": []map[string]any{{"product_id": productID, "quantity": 10}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversell: status %d body %v", resp.StatusCode, body)
	}

	// Unknown product in an order is also a bad request.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/orders", customer, map[string]any{
		"items": []map[string]any{{"product_id": 999, "quantity": 1}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown product: status %d, want 400", resp.StatusCode)
	}
}

func TestUserResponsesOmitPasswordHash(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/register", "", map[string]string{
		"firstname": "A",
		"lastname":  "B",
		"email":     "a@example.com",
		"password":  "Sup3r#Secret!",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("no user in response: %v", body)
	}
	if _, present := user["password"]; present {
		t.Fatalf("password leaked in response: %v", user)
	}
}

func TestProductAndStatsEndpoints(t *testing.T) {
	ts := newTestServer(t, Config{})
	admin := bootstrapAdmin(t, ts.URL)

	for i := 0; i < 3; i++ {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/products", admin, map[string]any{
			"title": fmt.Sprintf("Item %d", i),
			"price": 1.5,
			"stock": 10,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create product %d: status %d body %v", i, resp.StatusCode, body)
		}
	}

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/products?q=item", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list products: status %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/products/999", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing product: status %d, want 404", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/stats", nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer res.Body.Close()
	var stats map[string][]map[string]any
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if len(stats["new_arrivals"]) != 3 {
		t.Fatalf("new arrivals = %v, want 3 products", stats["new_arrivals"])
	}
}
