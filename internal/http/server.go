package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"spendtrack/internal/services"
)

type Server struct {
	http.Server
	svc       *services.ExpenseService
	jwtSecret string
	tokenTTL  time.Duration

	limiter      *writeLimiter
	metrics      *securityMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// writeLimit is the per-IP budget of write requests per minute.
func NewServer(addr string, svc *services.ExpenseService, jwtSecret string, tokenTTL time.Duration, writeLimit int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		svc:       svc,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		limiter:   newWriteLimiter(writeLimit, time.Minute),
		metrics:   &securityMetrics{},
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/login", s.withSecurityHeaders(s.handleLogin))

	mux.HandleFunc("GET /api/expenses", s.secured(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.secured(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses/{id}", s.secured(s.handleGetExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.secured(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.secured(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/stats/day", s.secured(s.handleStatsDay))
	mux.HandleFunc("GET /api/stats/range", s.secured(s.handleStatsRange))
	mux.HandleFunc("GET /api/stats/year", s.secured(s.handleStatsYear))
	mux.HandleFunc("GET /api/stats/categories", s.secured(s.handleStatsCategories))
	mux.HandleFunc("GET /api/stats/latest", s.secured(s.handleStatsLatest))

	mux.HandleFunc("GET /api/admin/expenses", s.secured(s.handleAdminListExpenses))
	mux.HandleFunc("GET /api/admin/events", s.secured(s.handleAdminEvents))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
