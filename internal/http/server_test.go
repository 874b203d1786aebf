package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"spendtrack/internal/cache"
	"spendtrack/internal/core"
	"spendtrack/internal/services"
	"spendtrack/internal/storage"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *Server {
	return newTestServerWithWriteLimit(t, 60)
}

func newTestServerWithWriteLimit(t *testing.T, writeLimit int) *Server {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "expenses.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := services.NewExpenseService(store, nil, cache.NewStatsCache(16, time.Minute))
	s := NewServer(":0", svc, testSecret, time.Hour, writeLimit)
	t.Cleanup(func() { s.limiter.stop() })
	return s
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.10:4321"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server, email, password string) string {
	t.Helper()
	rec := doRequest(t, s, http.MethodPost, "/api/login", "", map[string]string{
		"email": email, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body)
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	return resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	token := login(t, s, "user@example.com", "user123")
	if token == "" {
		t.Fatal("expected token for seeded user")
	}

	rec := doRequest(t, s, http.MethodPost, "/api/login", "", map[string]string{
		"email": "user@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/login", "", map[string]string{"email": "user@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing password: expected 400, got %d", rec.Code)
	}
}

func TestExpensesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/expenses", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/expenses", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", rec.Code)
	}
}

func TestExpenseCRUDFlow(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "user@example.com", "user123")

	rec := doRequest(t, s, http.MethodPost, "/api/expenses", token, expenseRequest{
		Category: core.CategoryFood, Amount: 12.50, Date: "2024-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body)
	}
	var created core.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == 0 || created.UserID == nil || *created.UserID != 1 {
		t.Errorf("unexpected created expense: %+v", created)
	}

	path := "/api/expenses/" + itoa(created.ID)
	rec = doRequest(t, s, http.MethodGet, path, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPut, path, token, expenseRequest{
		Category: core.CategoryBills, Amount: 99.99, Date: "2024-02-02",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body)
	}
	var updated core.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.Category != core.CategoryBills || updated.Amount != 99.99 {
		t.Errorf("unexpected updated expense: %+v", updated)
	}

	rec = doRequest(t, s, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, path, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestCreateExpense_Rejections(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "user@example.com", "user123")

	rec := doRequest(t, s, http.MethodPost, "/api/expenses", token, expenseRequest{
		Category: "Groceries", Amount: 10, Date: "2024-01-01",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown category: expected 422, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/expenses", token, expenseRequest{
		Category: core.CategoryFood, Amount: 10, Date: "2024-02-31",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("impossible date: expected 422, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/expenses", bytes.NewBufferString("{broken"))
	req.RemoteAddr = "203.0.113.10:4321"
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: expected 400, got %d", recorder.Code)
	}
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	userToken := login(t, s, "user@example.com", "user123")
	adminToken := login(t, s, "admin@example.com", "admin123")

	rec := doRequest(t, s, http.MethodPost, "/api/expenses", userToken, expenseRequest{
		Category: core.CategoryFood, Amount: 10, Date: "2024-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/admin/expenses", userToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("admin list as user: expected 403, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/admin/expenses", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list: status %d", rec.Code)
	}
	var all []core.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode admin list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 expense across users, got %d", len(all))
	}

	rec = doRequest(t, s, http.MethodGet, "/api/admin/events", userToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("admin events as user: expected 403, got %d", rec.Code)
	}
	rec = doRequest(t, s, http.MethodGet, "/api/admin/events", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin events: status %d", rec.Code)
	}
}

func TestOwnershipEnforced(t *testing.T) {
	s := newTestServer(t)
	userToken := login(t, s, "user@example.com", "user123")
	adminToken := login(t, s, "admin@example.com", "admin123")

	rec := doRequest(t, s, http.MethodPost, "/api/expenses", adminToken, expenseRequest{
		Category: core.CategoryBills, Amount: 30, Date: "2024-01-03",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create as admin: status %d", rec.Code)
	}
	var created core.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	path := "/api/expenses/" + itoa(created.ID)
	rec = doRequest(t, s, http.MethodGet, path, userToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("get foreign expense: expected 403, got %d", rec.Code)
	}
	rec = doRequest(t, s, http.MethodDelete, path, userToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("delete foreign expense: expected 403, got %d", rec.Code)
	}

	// The owner's list must not include other users' rows.
	rec = doRequest(t, s, http.MethodGet, "/api/expenses", userToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var mine []core.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("expected empty list for user, got %d rows", len(mine))
	}
}

func TestStatsEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "user@example.com", "user123")

	seed := []expenseRequest{
		{Category: core.CategoryFood, Amount: 12.50, Date: "2024-01-01"},
		{Category: core.CategoryFood, Amount: 7.50, Date: "2024-01-02"},
		{Category: core.CategoryTransport, Amount: 20.00, Date: "2024-01-01"},
	}
	for _, e := range seed {
		rec := doRequest(t, s, http.MethodPost, "/api/expenses", token, e)
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed create: status %d", rec.Code)
		}
	}

	tests := []struct {
		path  string
		total float64
	}{
		{"/api/stats/day?date=2024-01-01", 32.50},
		{"/api/stats/range?start=2024-01-01&end=2024-01-02", 40.00},
		{"/api/stats/year?year=2024", 40.00},
	}
	for _, tt := range tests {
		rec := doRequest(t, s, http.MethodGet, tt.path, token, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d body %s", tt.path, rec.Code, rec.Body)
			continue
		}
		var resp totalResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Errorf("%s: decode: %v", tt.path, err)
			continue
		}
		if resp.Total != tt.total {
			t.Errorf("%s: expected %v, got %v", tt.path, tt.total, resp.Total)
		}
	}

	rec := doRequest(t, s, http.MethodGet, "/api/stats/categories", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("categories: status %d", rec.Code)
	}
	var breakdown []core.CategoryTotal
	if err := json.Unmarshal(rec.Body.Bytes(), &breakdown); err != nil {
		t.Fatalf("decode breakdown: %v", err)
	}
	if len(breakdown) != 2 || breakdown[0].Category != core.CategoryFood || breakdown[0].Total != 20 {
		t.Errorf("unexpected breakdown: %+v", breakdown)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/stats/latest?limit=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("latest: status %d", rec.Code)
	}
	var latest []core.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &latest); err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	if len(latest) != 2 || latest[0].Date != "2024-01-02" {
		t.Errorf("unexpected latest: %+v", latest)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/stats/day", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing date: expected 400, got %d", rec.Code)
	}
	rec = doRequest(t, s, http.MethodGet, "/api/stats/day?date=2024-13-01", token, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad date: expected 422, got %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/login", "", map[string]string{
		"email": "user@example.com", "password": "user123",
	})
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
