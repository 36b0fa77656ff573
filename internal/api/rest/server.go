package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/config"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/events"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the public HTTP surface of the bidding engine
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires routes, auth and middleware around the handler
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	svc bidding.Service,
	hub *events.Hub,
	increments *auction.IncrementTable,
	readiness ...HealthChecker,
) *Server {
	handler := NewHandler(svc, hub, increments)
	auth := newAuthenticator(cfg.Security.JWTSecret)
	limiter := newIPRateLimiter(cfg.Security.RateLimit.RequestsPerSecond, cfg.Security.RateLimit.BurstSize)

	mux := http.NewServeMux()

	// public reads
	mux.HandleFunc("GET /api/v1/auctions/{id}", handler.handleGetAuction)
	mux.HandleFunc("GET /api/v1/auctions/{id}/bids", handler.handleGetBids)
	mux.HandleFunc("GET /api/v1/auctions/{id}/stream", handler.handleStream)

	// authenticated reads
	mux.Handle("GET /api/v1/bidders/me/bids", auth.Middleware(http.HandlerFunc(handler.handleMyBids)))

	// authenticated writes
	mux.Handle("POST /api/v1/auctions", auth.Middleware(http.HandlerFunc(handler.handleCreateAuction)))
	mux.Handle("POST /api/v1/auctions/{id}/bids", auth.Middleware(http.HandlerFunc(handler.handlePlaceBid)))
	mux.Handle("POST /api/v1/auctions/{id}/close", auth.Middleware(http.HandlerFunc(handler.handleCloseAuction)))
	mux.Handle("POST /api/v1/auctions/{id}/cancel", auth.Middleware(http.HandlerFunc(handler.handleCancelAuction)))

	// operational endpoints
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.Handle("GET /readyz", handleReadyz(readiness))
	mux.Handle("GET /metrics", promhttp.Handler())

	root := chain(mux,
		requestIDMiddleware,
		recoveryMiddleware,
		loggingMiddleware,
		limiter.Middleware(),
	)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      root,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		logger: logger,
	}
}

// Handler exposes the routed handler, used by httptest
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown or a listener error
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready only when every dependency responds
func handleReadyz(checks []HealthChecker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check.HealthCheck(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
}
