package trace

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ausgaben/internal/log"
)

// Observer receives one call per finished request. route is the chi
// pattern ("/api/expenses/{id}"), or "unmatched".
type Observer func(method, route string, status int, elapsed time.Duration)

// Middleware attaches a request-scoped logger carrying the chi request ID
// and logs every completed request.
type Middleware struct {
	logger    *log.Logger
	access    *log.StructuredLogger
	extractIP func(*http.Request) string
	observe   Observer
}

// NewMiddleware builds the tracing middleware. extractIP and observe may be nil.
func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string, observe Observer) *Middleware {
	return &Middleware{
		logger:    logger,
		access:    log.NewStructuredLogger(logger),
		extractIP: extractIP,
		observe:   observe,
	}
}

// Handler must run after chi's RequestID middleware.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		requestLogger := m.logger.With(log.FieldRequestID, middleware.GetReqID(r.Context()))
		r = r.WithContext(log.WithLogger(r.Context(), requestLogger))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		m.access.LogHTTPEnd(r.Context(), r, status, elapsed.Milliseconds(), clientIP)

		if m.observe != nil {
			m.observe(r.Method, routePattern(r), status, elapsed)
		}
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
