package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lalder95/auctiond/internal/auction"
	"github.com/lalder95/auctiond/internal/config"
	"github.com/lalder95/auctiond/internal/domain"
	"github.com/lalder95/auctiond/internal/notify"
	"github.com/lalder95/auctiond/internal/server"
	"github.com/lalder95/auctiond/internal/server/handler"
	"github.com/lalder95/auctiond/internal/server/ws"
)

// shutdownGrace bounds how long in-flight HTTP requests may take to finish
// once the context is cancelled.
const shutdownGrace = 10 * time.Second

// ServeMode runs the full auction engine: commit service, read engine, HTTP
// API, WebSocket hub, and the notification bridge. It blocks until the
// context is cancelled or a component fails.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	if err := a.ensureAuction(ctx, deps); err != nil {
		return err
	}
	if err := a.ensureLots(ctx, deps); err != nil {
		return err
	}

	commits := auction.NewCommitService(
		deps.Auctions,
		deps.Lots,
		deps.BidLog,
		deps.Directory,
		deps.Caps,
		deps.LockManager,
		deps.SignalBus,
		deps.Clock,
		auction.CommitConfig{
			Ceiling:       a.cfg.Auction.MaxBid,
			JumpThreshold: a.cfg.Auction.JumpThreshold,
			CommitTimeout: a.cfg.Auction.CommitTimeout.Duration,
			LockTTL:       a.cfg.Auction.LockTTL.Duration,
		},
		a.logger,
	)

	engine := auction.NewEngine(
		deps.Auctions,
		deps.Lots,
		deps.BidLog,
		deps.Directory,
		deps.Caps,
		deps.Clock,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)

	// WebSocket hub and notification bridge only run with a signal bus.
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			AuctionName:  a.cfg.Auction.Name,
			StartedAt:    time.Now().UTC(),
			ReplayStream: auction.BidStream,
		})
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("app: ws hub: %w", err)
			}
			return nil
		})

		bridge := notify.NewBridge(deps.SignalBus, deps.Notifier,
			[]string{auction.BidsChannel, auction.LotsChannel}, a.logger)
		g.Go(func() error {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("app: notify bridge: %w", err)
			}
			return nil
		})
	}

	srv := server.NewServer(
		server.Config{
			Port:          a.cfg.Server.Port,
			CORSOrigins:   a.cfg.Server.CORSOrigins,
			AdminToken:    a.cfg.Server.AdminToken,
			BidRateLimit:  a.cfg.Server.BidRateLimit,
			BidRateWindow: a.cfg.Server.BidRateWindow.Duration,
		},
		server.Handlers{
			Health:  handler.NewHealthHandler(a.logger),
			Auction: handler.NewAuctionHandler(engine, a.logger),
			Bids:    handler.NewBidHandler(commits, a.logger),
			Admin:   handler.NewAdminHandler(commits, engine, deps.Archiver, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

// ensureAuction seeds the auction record from configuration on first run.
// An auction already in storage always wins over the config values.
func (a *App) ensureAuction(ctx context.Context, deps *Dependencies) error {
	_, err := deps.Auctions.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("app: load auction: %w", err)
	}

	if a.cfg.Auction.Start == "" {
		a.logger.WarnContext(ctx, "no auction in storage and auction.start unset; bids will be refused until one is created")
		return nil
	}

	start, err := parseStart(a.cfg.Auction, deps)
	if err != nil {
		return err
	}

	au := domain.Auction{
		ID:                 uuid.NewString(),
		Name:               a.cfg.Auction.Name,
		Start:              start,
		NominationDuration: a.cfg.Auction.NominationDuration.Duration,
		MaxBid:             a.cfg.Auction.MaxBid,
	}
	if err := deps.Auctions.Save(ctx, au); err != nil {
		return fmt.Errorf("app: seed auction: %w", err)
	}

	a.logger.InfoContext(ctx, "seeded auction from config",
		slog.String("auction_id", au.ID),
		slog.String("name", au.Name),
		slog.Time("start", au.Start),
	)
	return nil
}

// ensureLots seeds the configured lots. Lots already in storage are left
// untouched, so re-running with the same config never duplicates or alters a
// lot that has accumulated bids. A lot with no start_delay of its own inherits
// the auction-wide default.
func (a *App) ensureLots(ctx context.Context, deps *Dependencies) error {
	var seeded int
	for _, lc := range a.cfg.Auction.Lots {
		delay := lc.StartDelay.Duration
		if delay == 0 {
			delay = a.cfg.Auction.StartDelay.Duration
		}

		err := deps.Lots.Create(ctx, domain.Lot{
			ID:                 lc.ID,
			PlayerID:           lc.PlayerID,
			PlayerName:         lc.PlayerName,
			Position:           lc.Position,
			StartDelay:         delay,
			NominationDuration: lc.NominationDuration.Duration,
		})
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("app: seed lot %s: %w", lc.ID, err)
		}
		seeded++
	}

	if seeded > 0 {
		a.logger.InfoContext(ctx, "seeded lots from config",
			slog.Int("seeded", seeded),
			slog.Int("configured", len(a.cfg.Auction.Lots)),
		)
	}
	return nil
}

// parseStart reads the configured start instant and pins it to the league's
// reference civil time.
func parseStart(cfg config.AuctionConfig, deps *Dependencies) (time.Time, error) {
	start, err := time.Parse(time.RFC3339, cfg.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("app: auction.start: %w", err)
	}
	return deps.Clock.In(start), nil
}
