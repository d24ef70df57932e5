// Package http exposes the expense session and the export hub as a
// JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tally/internal/cache"
	"tally/internal/cloudexport"
	"tally/internal/core"
	"tally/internal/session"
)

type Server struct {
	http.Server

	coordinator *session.Coordinator
	hub         *cloudexport.Service

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// summaryCache memoizes the derived summary between mutations,
	// keyed by the coordinator revision.
	summaryCache *cache.LRU[core.Summary]

	cancelJanitor context.CancelFunc
	shutdownOnce  sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, coordinator *session.Coordinator, hub *cloudexport.Service) *Server {
	mux := http.NewServeMux()

	janitorCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		coordinator:   coordinator,
		hub:           hub,
		rateLimiter:   newRateLimiter(),
		metrics:       &securityMetrics{},
		summaryCache:  cache.NewLRU[core.Summary](16, 5*time.Minute),
		cancelJanitor: cancel,
	}
	go cache.Janitor(janitorCtx, s.summaryCache, 10*time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/expenses", s.withMiddleware(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withMiddleware(s.handleCreateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withMiddleware(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withMiddleware(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/summary", s.withMiddleware(s.handleSummary))

	mux.HandleFunc("GET /api/filters", s.withMiddleware(s.handleGetFilters))
	mux.HandleFunc("PUT /api/filters", s.withMiddleware(s.handleSetFilters))
	mux.HandleFunc("POST /api/filters/reset", s.withMiddleware(s.handleResetFilters))

	mux.HandleFunc("GET /api/export/csv", s.withMiddleware(s.handleExportCSV))
	mux.HandleFunc("GET /api/export/xlsx", s.withMiddleware(s.handleExportXLSX))
	mux.HandleFunc("GET /api/export/templates", s.withMiddleware(s.handleExportTemplates))
	mux.HandleFunc("GET /api/export/data", s.withMiddleware(s.handleExportData))

	mux.HandleFunc("GET /api/cloud/integrations", s.withMiddleware(s.handleIntegrations))
	mux.HandleFunc("POST /api/cloud/integrations/{id}/toggle", s.withMiddleware(s.handleToggleIntegration))
	mux.HandleFunc("GET /api/cloud/history", s.withMiddleware(s.handleHistory))
	mux.HandleFunc("DELETE /api/cloud/history", s.withMiddleware(s.handleClearHistory))
	mux.HandleFunc("POST /api/cloud/exports", s.withMiddleware(s.handleCloudExport))
	mux.HandleFunc("POST /api/cloud/email", s.withMiddleware(s.handleEmailExport))
	mux.HandleFunc("GET /api/cloud/shares", s.withMiddleware(s.handleShares))
	mux.HandleFunc("POST /api/cloud/shares", s.withMiddleware(s.handleCreateShare))
	mux.HandleFunc("GET /api/cloud/schedules", s.withMiddleware(s.handleSchedules))
	mux.HandleFunc("POST /api/cloud/schedules", s.withMiddleware(s.handleCreateSchedule))
	mux.HandleFunc("POST /api/cloud/schedules/{id}/toggle", s.withMiddleware(s.handleToggleSchedule))
	mux.HandleFunc("DELETE /api/cloud/schedules/{id}", s.withMiddleware(s.handleDeleteSchedule))

	return s
}

// withMiddleware adds request IDs, security headers, class-based rate
// limiting on writes, and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request", "client_ip", clientIP, "url", r.URL.String())
		}

		if class, limited := throttleClass(r); limited && !s.rateLimiter.allow(clientIP, class, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP,
				"method", r.Method,
				"url", r.URL.Path,
				"class", string(class))
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.coordinator.State() != session.StateReady {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops the background goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cancelJanitor()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
