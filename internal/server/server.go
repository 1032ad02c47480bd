// Package server exposes the trading engine over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/outcomefi/engine/internal/domain"
	"github.com/outcomefi/engine/internal/server/handler"
	"github.com/outcomefi/engine/internal/server/middleware"
	"github.com/outcomefi/engine/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port          int
	CORSOrigins   []string
	APIKey        string // if empty, authentication is disabled
	RatePerMinute int    // if zero, rate limiting is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Archive is optional; it is only available when blob storage is configured.
type Handlers struct {
	Health  *handler.HealthHandler
	Markets *handler.MarketHandler
	Orders  *handler.OrderHandler
	Pool    *handler.PoolHandler
	Claims  *handler.ClaimsHandler
	Archive *handler.ArchiveHandler
}

// Server is the HTTP + WebSocket API for the trading engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (auth, rate limiting, logging, CORS) and attaches
// the WebSocket hub. The limiter may be nil when rate limiting is disabled.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Liveness and readiness (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/ready", handlers.Health.ReadyCheck)

	// Market directory and lifecycle.
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{id}/close", handlers.Markets.CloseMarket)

	// Order registry.
	mux.HandleFunc("POST /api/markets/{id}/orders/buy", handlers.Orders.PlaceBuy)
	mux.HandleFunc("POST /api/markets/{id}/orders/sell", handlers.Orders.PlaceSell)
	mux.HandleFunc("GET /api/markets/{id}/orders", handlers.Orders.ListOrders)
	mux.HandleFunc("GET /api/markets/{id}/orders/{orderID}", handlers.Orders.GetOrder)
	mux.HandleFunc("DELETE /api/markets/{id}/orders/{orderID}", handlers.Orders.CancelOrder)
	mux.HandleFunc("POST /api/markets/{id}/match", handlers.Orders.Match)
	mux.HandleFunc("GET /api/markets/{id}/trades", handlers.Orders.ListTrades)
	mux.HandleFunc("GET /api/markets/{id}/book/{outcome}", handlers.Orders.GetBook)
	mux.HandleFunc("GET /api/markets/{id}/registry", handlers.Orders.GetRegistry)

	// AMM pool.
	mux.HandleFunc("GET /api/markets/{id}/pool", handlers.Pool.Stats)
	mux.HandleFunc("POST /api/markets/{id}/pool/deposit", handlers.Pool.Deposit)
	mux.HandleFunc("POST /api/markets/{id}/pool/withdraw", handlers.Pool.Withdraw)
	mux.HandleFunc("POST /api/markets/{id}/pool/swap", handlers.Pool.Swap)
	mux.HandleFunc("GET /api/markets/{id}/pool/quote", handlers.Pool.Quote)
	mux.HandleFunc("GET /api/markets/{id}/pool/shares/{account}", handlers.Pool.GetShares)
	mux.HandleFunc("POST /api/markets/{id}/pool/transfer", handlers.Pool.TransferShares)

	// Escrow claims.
	mux.HandleFunc("GET /api/claims", handlers.Claims.ListClaims)
	mux.HandleFunc("GET /api/markets/{id}/claims/{account}", handlers.Claims.GetClaims)
	mux.HandleFunc("POST /api/markets/{id}/claims/{account}/withdraw", handlers.Claims.WithdrawClaims)

	// Cold-storage archive, registered only when blob storage is wired.
	if handlers.Archive != nil {
		mux.HandleFunc("GET /api/markets/{id}/archive", handlers.Archive.ListArchive)
		mux.HandleFunc("GET /api/markets/{id}/archive/{kind}", handlers.Archive.DownloadArchive)
	}

	// WebSocket event feed.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RatePerMinute > 0 {
		h = middleware.RateLimit(limiter, cfg.RatePerMinute, time.Minute)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
