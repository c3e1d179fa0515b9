package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	s3blob "github.com/lalder95/auctiond/internal/blob/s3"
	"github.com/lalder95/auctiond/internal/cache/redis"
	"github.com/lalder95/auctiond/internal/clock"
	"github.com/lalder95/auctiond/internal/config"
	"github.com/lalder95/auctiond/internal/directory"
	"github.com/lalder95/auctiond/internal/domain"
	"github.com/lalder95/auctiond/internal/notify"
	"github.com/lalder95/auctiond/internal/store/memory"
	"github.com/lalder95/auctiond/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	Auctions domain.AuctionStore
	Lots     domain.LotStore
	BidLog   domain.BidLogStore

	// Collaborators
	Directory domain.ParticipantDirectory
	Caps      domain.CapSource

	// Redis-backed infrastructure; all nil when Redis is disabled.
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage; nil when S3 is disabled.
	Archiver domain.Archiver

	// Notifications
	Notifier *notify.Notifier

	Clock clock.Clock
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	local := strings.ToLower(cfg.Mode) == "local"

	// --- Clock ---
	clk, err := clock.NewLeague(cfg.League.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: clock: %w", err)
	}
	deps.Clock = clk

	// --- Storage ---
	if local {
		mem := memory.New()
		deps.Auctions = mem
		deps.Lots = memory.Lots{Store: mem}
		deps.BidLog = mem
	} else {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Auctions = postgres.NewAuctionStore(pool)
		deps.Lots = postgres.NewLotStore(pool)
		deps.BidLog = postgres.NewBidLogStore(pool)
	}

	// --- Redis ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled && !local {
		redisClient, err = redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- Participant directory and cap source ---
	seasonCap, err := decimal.NewFromString(cfg.League.SeasonCap)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: league season_cap %q: %w", cfg.League.SeasonCap, err)
	}

	members := make([]directory.Member, 0, len(cfg.League.Participants))
	for _, p := range cfg.League.Participants {
		members = append(members, directory.Member{
			ID:          p.ID,
			DisplayName: p.DisplayName,
		})
	}

	deps.Caps = directory.NewCSVCapSource(directory.CSVCapConfig{
		ContractsURL: cfg.League.ContractsURL,
		FinesURL:     cfg.League.FinesURL,
		SeasonCap:    seasonCap,
		Timeout:      cfg.League.FeedTimeout.Duration,
	}, members, logger)

	if redisClient != nil {
		deps.Caps = directory.NewCachedCapSource(
			deps.Caps,
			redis.NewHeadroomCache(redisClient),
			cfg.League.HeadroomCacheTTL.Duration,
			logger,
		)
	}
	deps.Directory = directory.New(members, deps.Caps)

	// --- S3 blob storage ---
	if cfg.S3.Enabled && !local {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			s3blob.NewReader(s3Client),
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
