package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lalder95/auctiond/internal/domain"
	"github.com/lalder95/auctiond/internal/server/handler"
	"github.com/lalder95/auctiond/internal/server/middleware"
	"github.com/lalder95/auctiond/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	AdminToken  string // if empty, admin endpoints are disabled

	// Bid endpoint rate limit. Applied only when a RateLimiter is provided.
	BidRateLimit  int
	BidRateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Auction *handler.AuctionHandler
	Bids    *handler.BidHandler
	Admin   *handler.AdminHandler
}

// Server is the HTTP + WebSocket API for the auction engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux.
// limiter may be nil, in which case bid submissions are not rate limited.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (never authenticated).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Read-only auction surface.
	mux.HandleFunc("GET /api/auction", handlers.Auction.GetAuction)
	mux.HandleFunc("GET /api/auction/lots/{id}", handlers.Auction.GetLot)
	mux.HandleFunc("GET /api/auction/bidlog", handlers.Auction.GetBidLog)
	mux.HandleFunc("GET /api/auction/caps", handlers.Auction.GetCaps)

	// Bid submission, rate limited per client when a limiter is configured.
	var placeBid http.Handler = http.HandlerFunc(handlers.Bids.PlaceBid)
	if limiter != nil && cfg.BidRateLimit > 0 {
		placeBid = middleware.RateLimit(limiter, cfg.BidRateLimit, cfg.BidRateWindow)(placeBid)
	}
	mux.Handle("POST /api/bids", placeBid)

	// Admin surface behind bearer-token auth. With no token configured the
	// middleware rejects nothing, so the routes are simply not registered.
	if cfg.AdminToken != "" {
		protect := middleware.Auth(cfg.AdminToken)
		mux.Handle("POST /api/admin/lots/{id}/reset", protect(http.HandlerFunc(handlers.Admin.ResetLot)))
		mux.Handle("POST /api/admin/archive", protect(http.HandlerFunc(handlers.Admin.Archive)))
		mux.Handle("GET /api/admin/archive", protect(http.HandlerFunc(handlers.Admin.ListArchive)))
		mux.Handle("GET /api/admin/archive/{id}", protect(http.HandlerFunc(handlers.Admin.GetArchivedLedger)))
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
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
