// Package http serves the JSON API and the server-rendered dashboard.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
	appweb "expensetracker/web"
)

// Expenses is what the handlers need from the service layer.
type Expenses interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	Query(ctx context.Context, f core.Filter) (services.View, error)
	Summarize(ctx context.Context, f core.Filter) (core.Summary, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Catalogue() core.Catalogue
	Now() time.Time
}

// Options tune the server. Zero values pick defaults.
type Options struct {
	Logger             *applog.Logger
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	expenses  Expenses
	templates *template.Template
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, expenses Expenses, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	clientIP, err := security.NewClientIP(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("").Funcs(templateFuncs(expenses.Catalogue())).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	s := &Server{
		expenses:  expenses,
		templates: tmpl,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:    trace.NewMiddleware(logger, clientIP.Extract),
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet, http.MethodHead)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses", s.handleDeleteExpense).Methods(http.MethodDelete)
	api.HandleFunc("/expenses", methodNotAllowed(http.MethodGet, http.MethodPost, http.MethodDelete))
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/summary", methodNotAllowed(http.MethodGet))
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", methodNotAllowed(http.MethodGet))

	r.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/ui/expenses", s.handleFormCreate).Methods(http.MethodPost)
	r.HandleFunc("/ui/expenses/delete", s.handleFormDelete).Methods(http.MethodPost)
	r.PathPrefix("/static/").Handler(security.StaticAssets(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static))))).Methods(http.MethodGet, http.MethodHead)

	var handler http.Handler = r
	handler = s.limiter.Middleware(clientIP.Extract, rateLimited, http.MethodPost, http.MethodDelete)(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
// Calling it more than once is safe.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// TraceMetrics returns the request counters.
func (s *Server) TraceMetrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded", applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.expenses.Ping(ctx); err != nil {
		applog.LogError(r.Context(), "Readiness check failed", err, applog.ComponentStorage, "ping", nil)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	_, _ = w.Write([]byte("ready"))
}
