package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ausgaben/internal/cache"
	"ausgaben/internal/core"
	"ausgaben/internal/log"
	"ausgaben/internal/middleware/ratelimit"
	"ausgaben/internal/middleware/security"
	"ausgaben/internal/middleware/trace"
	"ausgaben/internal/services"
)

// Deps are the services and settings the server is built from.
type Deps struct {
	Expenses   *services.ExpenseService
	Categories *services.CategoryService
	Budgets    *services.BudgetService

	Logger   *log.Logger
	Location *time.Location // for "today"; defaults to UTC

	// Now defaults to time.Now.
	Now func() time.Time
	// RequestsPerMinute limits POST requests per client IP. Zero means 60.
	RequestsPerMinute int
	// Ready reports whether dependencies are reachable. Nil means always ready.
	Ready func(context.Context) error
}

type Server struct {
	http.Server

	expenses   *services.ExpenseService
	categories *services.CategoryService
	budgets    *services.BudgetService

	logger  *log.Logger
	loc     *time.Location
	now     func() time.Time
	ready   func(context.Context) error
	metrics *Metrics

	limiter  *ratelimit.Limiter
	detector *security.Detector

	// Budget reports keyed by category and day, purged on every write.
	reports *cache.LRUCache[services.Report]
	caches  *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		expenses:   deps.Expenses,
		categories: deps.Categories,
		budgets:    deps.Budgets,
		logger:     deps.Logger,
		loc:        deps.Location,
		now:        deps.Now,
		ready:      deps.Ready,
		metrics:    NewMetrics(),
		detector:   security.NewDetector(),
		reports:    cache.NewLRUCache[services.Report](100, time.Minute),
		caches:     cache.NewManager(),
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: deps.RequestsPerMinute,
		Now:               s.now,
	})
	s.detector.OnSuspicious(func(*http.Request) { s.metrics.suspicious.Inc() })

	s.caches.Register(s.reports)
	s.caches.StartCleanup(5 * time.Minute)

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, s.metrics.observeRequest).Handler)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited, http.MethodPost))

		r.Post("/quick", s.handleQuickAdd)
		r.Post("/quick/preview", s.handleQuickPreview)

		r.Get("/expenses", s.handleListExpenses)
		r.Delete("/expenses/{id}", s.handleDeleteExpense)

		r.Get("/categories", s.handleListCategories)
		r.Put("/categories/{name}/budget", s.handleSetCategoryBudget)

		r.Get("/budget", s.handleBudget)
		r.Put("/budget/override", s.handleSetOverride)
		r.Delete("/budget/override", s.handleClearOverride)

		r.Get("/export.csv", s.handleExportCSV)
	})
	return r
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now().In(s.loc))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.rateLimited.Inc()
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, please try again later"})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}
