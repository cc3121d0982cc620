package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/memory"
	"expensetracker/internal/storage/storetest"
)

var errDiskIO = errors.New("disk I/O error")

// brokenStore fails every operation with a storage error.
type brokenStore struct{}

func (brokenStore) List(context.Context) ([]core.Expense, error) {
	return nil, core.NewStorageError("list", errDiskIO)
}
func (brokenStore) Insert(context.Context, core.Expense) error {
	return core.NewStorageError("insert", errDiskIO)
}
func (brokenStore) Delete(context.Context, string) error {
	return core.NewStorageError("delete", errDiskIO)
}
func (brokenStore) Ping(context.Context) error { return core.NewStorageError("ping", errDiskIO) }
func (brokenStore) Close() error               { return nil }

func clock() time.Time {
	return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T, store services.Store) *Server {
	t.Helper()
	svc := services.NewExpenseService(store, services.WithClock(clock), services.WithCacheTTL(time.Minute))
	srv, err := NewServer(":0", svc, Options{RateLimitPerMinute: 1000})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, srv *Server, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func listExpenses(t *testing.T, srv *Server) []map[string]any {
	t.Helper()
	rec := do(t, srv, http.MethodGet, "/api/expenses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestListEmptyIsArray(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rec := do(t, srv, http.MethodGet, "/api/expenses", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateListDeleteScenario(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rec := do(t, srv, http.MethodPost, "/api/expenses",
		`{"amount": 12.50, "description": "Lunch", "category": "Food", "date": "2024-03-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Expense added successfully", created.Message)
	assert.NotEmpty(t, created.ID)

	rec = do(t, srv, http.MethodPost, "/api/expenses",
		`{"id": "taxi-1", "amount": "30", "description": "Taxi", "category": "Transport", "date": "2024-03-02"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"taxi-1"`)

	list := listExpenses(t, srv)
	require.Len(t, list, 2)
	assert.Equal(t, "Taxi", list[0]["description"])
	assert.Equal(t, float64(30), list[0]["amount"])
	assert.Equal(t, "Lunch", list[1]["description"])
	assert.Equal(t, 12.5, list[1]["amount"])

	rec = do(t, srv, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		Total       float64 `json:"total"`
		Count       int     `json:"count"`
		TopCategory struct {
			Name    string  `json:"name"`
			Total   float64 `json:"total"`
			Percent int     `json:"percent"`
		} `json:"top_category"`
		ByCategory []struct {
			Name  string  `json:"name"`
			Total float64 `json:"total"`
		} `json:"by_category"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 42.5, summary.Total)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, "Transport", summary.TopCategory.Name)
	assert.Equal(t, 71, summary.TopCategory.Percent)
	require.Len(t, summary.ByCategory, 2)
	assert.Equal(t, "Transport", summary.ByCategory[0].Name)
	assert.Equal(t, "Food", summary.ByCategory[1].Name)

	rec = do(t, srv, http.MethodDelete, "/api/expenses", `{"id": "taxi-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message": "Expense deleted successfully"}`, rec.Body.String())

	list = listExpenses(t, srv)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0]["id"])

	rec = do(t, srv, http.MethodDelete, "/api/expenses", `{"id": "does-not-exist"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, listExpenses(t, srv), 1)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing description", body: `{"amount": 5, "category": "Food", "date": "2024-03-01"}`, want: "description"},
		{name: "missing amount", body: `{"description": "x", "category": "Food", "date": "2024-03-01"}`, want: "amount"},
		{name: "zero amount", body: `{"amount": 0, "description": "x", "category": "Food", "date": "2024-03-01"}`, want: "amount"},
		{name: "overflowing amount", body: `{"amount": 1e400, "description": "x", "category": "Food", "date": "2024-03-01"}`, want: "amount"},
		{name: "vanishing amount", body: `{"amount": 1e-400, "description": "x", "category": "Food", "date": "2024-03-01"}`, want: "amount"},
		{name: "sub-cent amount", body: `{"amount": 0.004, "description": "x", "category": "Food", "date": "2024-03-01"}`, want: "amount"},
		{name: "amount above maximum", body: `{"amount": "1000000000.01", "description": "x", "category": "Food", "date": "2024-03-01"}`, want: "amount"},
		{name: "negative amount", body: `{"amount": "-3", "description": "x", "category": "Food", "date": "2024-03-01"}`, want: "amount"},
		{name: "missing category", body: `{"amount": 5, "description": "x", "date": "2024-03-01"}`, want: "category"},
		{name: "bad date", body: `{"amount": 5, "description": "x", "category": "Food", "date": "03/01/2024"}`, want: "date"},
		{name: "malformed json", body: `{"amount": 5,`, want: "JSON"},
		{name: "array body", body: `[1, 2]`, want: "JSON"},
		{name: "empty body", body: "", want: "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, memory.New())

			rec := do(t, srv, http.MethodPost, "/api/expenses", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Error, tt.want)

			assert.Empty(t, listExpenses(t, srv), "no row should be written")
		})
	}
}

func TestCreateRejectsOverflowOnSQLite(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	srv := newTestServer(t, repo)

	rec := do(t, srv, http.MethodPost, "/api/expenses",
		`{"amount": 1e400, "description": "x", "category": "Food", "date": "2024-03-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, listExpenses(t, srv))
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/summary", "").Code)
}

func TestCreateRoundsAmountsToCents(t *testing.T) {
	srv := newTestServer(t, memory.New())

	for _, body := range []string{
		`{"id": "n", "amount": 12.345, "description": "number", "category": "Food", "date": "2024-03-01"}`,
		`{"id": "s", "amount": "12.345", "description": "string", "category": "Food", "date": "2024-03-01"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/expenses", body).Code)
	}

	for _, e := range listExpenses(t, srv) {
		assert.Equal(t, 12.35, e["amount"], e["id"])
	}
}

func TestCreateAcceptsLongDescription(t *testing.T) {
	srv := newTestServer(t, memory.New())
	desc := strings.Repeat("€", 250)

	rec := do(t, srv, http.MethodPost, "/api/expenses",
		`{"amount": 5, "description": "`+desc+`", "category": "Food", "date": "2024-03-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	list := listExpenses(t, srv)
	require.Len(t, list, 1)
	assert.Equal(t, desc, list[0]["description"])
}

func TestCreateDuplicateID(t *testing.T) {
	srv := newTestServer(t, memory.New(storetest.Expense("dup", "1", "first", "Food", "2024-03-01")))

	rec := do(t, srv, http.MethodPost, "/api/expenses",
		`{"id": "dup", "amount": 2, "description": "second", "category": "Food", "date": "2024-03-02"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), core.ErrDuplicateID.Error())

	list := listExpenses(t, srv)
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0]["description"])
}

func TestDeleteMissingID(t *testing.T) {
	srv := newTestServer(t, memory.New())

	for _, body := range []string{"", `{}`, `{"id": "  "}`} {
		rec := do(t, srv, http.MethodDelete, "/api/expenses", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestDeleteByQueryParameter(t *testing.T) {
	srv := newTestServer(t, memory.New(storetest.Expense("a", "1", "one", "Food", "2024-03-01")))

	rec := do(t, srv, http.MethodDelete, "/api/expenses?id=a", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, listExpenses(t, srv))
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, memory.New())

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		rec := do(t, srv, method, "/api/expenses", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "GET, POST, DELETE", rec.Header().Get("Allow"))
	}

	rec := do(t, srv, http.MethodPost, "/api/summary", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET", rec.Header().Get("Allow"))
}

func TestStorageFailuresAreGeneric(t *testing.T) {
	srv := newTestServer(t, brokenStore{})

	checks := []struct {
		method, body string
	}{
		{http.MethodGet, ""},
		{http.MethodPost, `{"amount": 1, "description": "x", "category": "Food", "date": "2024-03-01"}`},
		{http.MethodDelete, `{"id": "a"}`},
	}
	for _, c := range checks {
		rec := do(t, srv, c.method, "/api/expenses", c.body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, c.method)
		assert.JSONEq(t, `{"error": "Internal Server Error"}`, rec.Body.String(), c.method)
		assert.NotContains(t, rec.Body.String(), errDiskIO.Error())
	}
}

func TestSummaryFilters(t *testing.T) {
	srv := newTestServer(t, memory.New(
		storetest.Expense("1", "4.50", "Morning Coffee", "Food", "2024-03-15"),
		storetest.Expense("2", "20", "Groceries", "Food", "2024-03-14"),
		storetest.Expense("3", "60", "Electricity", "Bills", "2024-02-01"),
	))

	rec := do(t, srv, http.MethodGet, "/api/summary?window=today", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":4.5`)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = do(t, srv, http.MethodGet, "/api/summary?q=COFFEE", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = do(t, srv, http.MethodGet, "/api/summary?category=Bills", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":60`)

	rec = do(t, srv, http.MethodGet, "/api/summary?window=year", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	srv = newTestServer(t, memory.New())
	rec = do(t, srv, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"top_category":null`)
	assert.Contains(t, rec.Body.String(), `"by_category":[]`)
}

func TestCategories(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rec := do(t, srv, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cats []core.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	assert.Equal(t, core.DefaultCatalogue(), core.Catalogue(cats))
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, memory.New())
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/readyz", "").Code)

	broken := newTestServer(t, brokenStore{})
	assert.Equal(t, http.StatusOK, do(t, broken, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, broken, http.MethodGet, "/readyz", "").Code)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rec := do(t, srv, http.MethodGet, "/api/expenses", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRateLimitOnMutations(t *testing.T) {
	svc := services.NewExpenseService(memory.New(), services.WithClock(clock))
	srv, err := NewServer(":0", svc, Options{RateLimitPerMinute: 2})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rec := do(t, srv, http.MethodDelete, "/api/expenses", `{"id": "x"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, srv, http.MethodDelete, "/api/expenses", `{"id": "x"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/expenses", "").Code)
	}
}

func TestRateLimitKeysOnTrustedProxies(t *testing.T) {
	deleteFrom := func(srv *Server, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/expenses?id=x", nil)
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		return rec.Code
	}

	svc := services.NewExpenseService(memory.New(), services.WithClock(clock))

	// httptest peers come from 192.0.2.1, which is not trusted by default.
	direct, err := NewServer(":0", svc, Options{RateLimitPerMinute: 1})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, deleteFrom(direct, "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, deleteFrom(direct, "198.51.100.2"))

	proxied, err := NewServer(":0", svc, Options{RateLimitPerMinute: 1, TrustedProxies: []string{"192.0.2.0/24"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, deleteFrom(proxied, "198.51.100.1"))
	assert.Equal(t, http.StatusOK, deleteFrom(proxied, "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, deleteFrom(proxied, "198.51.100.1"))

	_, err = NewServer(":0", svc, Options{TrustedProxies: []string{"bogus"}})
	assert.Error(t, err)
}

func TestDashboard(t *testing.T) {
	srv := newTestServer(t, memory.New(
		storetest.Expense("1", "4.50", "Morning Coffee", "Food", "2024-03-15"),
		storetest.Expense("2", "20", "Groceries", "Food", "2024-03-14"),
		storetest.Expense("3", "60", "Electricity", "Bills", "2024-02-01"),
		storetest.Expense("4", "7", "Mystery", "Gadgets", "2024-03-10"),
	))

	rec := do(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "$91.50")
	assert.Contains(t, body, "Showing 4 of 4 expenses")
	assert.Contains(t, body, "Bills")
	assert.Contains(t, body, "66% of total")
	assert.Contains(t, body, "Mar 15")
	assert.Contains(t, body, "cat-gray", "unknown categories use the default display")
	assert.Contains(t, body, `value="2024-03-15"`, "date input defaults to today")

	rec = do(t, srv, http.MethodGet, "/?window=today&q=coffee", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "Showing 1 of 4 expenses")
	assert.Contains(t, body, "Morning Coffee")
	assert.NotContains(t, body, "Groceries")
	assert.Contains(t, body, "$91.50", "summary cards cover every record")

	rec = do(t, srv, http.MethodGet, "/?q=nothing-matches", "")
	assert.Contains(t, rec.Body.String(), "No expenses found.")
}

func TestDashboardEmptyShowsNone(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rec := do(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "None")
	assert.Contains(t, rec.Body.String(), "No spending recorded yet.")
}

func TestDashboardStorageFailure(t *testing.T) {
	srv := newTestServer(t, brokenStore{})

	rec := do(t, srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Expenses could not be loaded")
	assert.NotContains(t, rec.Body.String(), errDiskIO.Error())
}

func TestFormCreateAndDelete(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rec := postForm(t, srv, "/ui/expenses", url.Values{
		"amount":      {"12,50"},
		"description": {"Lunch"},
		"category":    {"Food"},
		"date":        {"2024-03-15"},
		"f_q":         {"lun"},
		"f_category":  {"All"},
		"f_window":    {"month"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?q=lun&window=month", rec.Header().Get("Location"))

	list := listExpenses(t, srv)
	require.Len(t, list, 1)
	assert.Equal(t, 12.5, list[0]["amount"])
	assert.Equal(t, "Food", list[0]["category"])

	rec = postForm(t, srv, "/ui/expenses/delete", url.Values{"id": {list[0]["id"].(string)}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Empty(t, listExpenses(t, srv))
}

func TestFormCreateInvalidStillRedirects(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rec := postForm(t, srv, "/ui/expenses", url.Values{
		"amount":      {"abc"},
		"description": {"Lunch"},
		"category":    {"Food"},
		"date":        {"2024-03-15"},
		"f_category":  {"Food"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?category=Food", rec.Header().Get("Location"))
	assert.Empty(t, listExpenses(t, srv))
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rec := do(t, srv, http.MethodGet, "/static/style.css", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age=3600")

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/nope", "").Code)
}

func TestSQLiteReadYourWrites(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	srv := newTestServer(t, repo)
	assert.Empty(t, listExpenses(t, srv))

	rec := do(t, srv, http.MethodPost, "/api/expenses",
		`{"amount": 12.5, "description": "Lunch", "category": "Food", "date": "2024-03-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	list := listExpenses(t, srv)
	require.Len(t, list, 1)
	assert.Equal(t, "Lunch", list[0]["description"])

	rec = do(t, srv, http.MethodDelete, "/api/expenses", `{"id": "`+list[0]["id"].(string)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, listExpenses(t, srv))
}

func TestShutdownTwice(t *testing.T) {
	srv := newTestServer(t, memory.New())
	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))
}
