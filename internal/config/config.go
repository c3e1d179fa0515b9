// Package config defines the top-level configuration for the auction engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by AUCTIOND_* environment
// variables.
type Config struct {
	League   LeagueConfig   `toml:"league"`
	Auction  AuctionConfig  `toml:"auction"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ParticipantConfig is one roster entry. DisplayName must match the team name
// used in the league's accounting feeds.
type ParticipantConfig struct {
	ID          string `toml:"id"`
	DisplayName string `toml:"display_name"`
}

// LeagueConfig holds the roster and the external accounting feeds.
type LeagueConfig struct {
	Timezone         string              `toml:"timezone"`
	SeasonCap        string              `toml:"season_cap"` // decimal string
	ContractsURL     string              `toml:"contracts_url"`
	FinesURL         string              `toml:"fines_url"`
	FeedTimeout      duration            `toml:"feed_timeout"`
	HeadroomCacheTTL duration            `toml:"headroom_cache_ttl"`
	Participants     []ParticipantConfig `toml:"participants"`
}

// AuctionConfig holds the engine's tunable parameters and the lots to seed
// when the auction record is first created.
type AuctionConfig struct {
	Name               string      `toml:"name"`
	Start              string      `toml:"start"` // RFC 3339
	NominationDuration duration    `toml:"nomination_duration"`
	StartDelay         duration    `toml:"start_delay"` // default per-lot delay
	MaxBid             int         `toml:"max_bid"`
	JumpThreshold      int         `toml:"jump_threshold"`
	CommitTimeout      duration    `toml:"commit_timeout"`
	LockTTL            duration    `toml:"lock_ttl"`
	Lots               []LotConfig `toml:"lots"`
}

// LotConfig describes one lot to seed. A zero StartDelay inherits the
// auction-wide default, and a zero NominationDuration inherits the auction's
// nomination window.
type LotConfig struct {
	ID                 string   `toml:"id"`
	PlayerID           string   `toml:"player_id"`
	PlayerName         string   `toml:"player_name"`
	Position           string   `toml:"position"`
	StartDelay         duration `toml:"start_delay"`
	NominationDuration duration `toml:"nomination_duration"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional for
// single-instance deployments; without it the per-lot exclusion is local and
// no events are published.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for ledger archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port          int      `toml:"port"`
	CORSOrigins   []string `toml:"cors_origins"`
	AdminToken    string   `toml:"admin_token"`
	BidRateLimit  int      `toml:"bid_rate_limit"`
	BidRateWindow duration `toml:"bid_rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		League: LeagueConfig{
			Timezone:         "America/Chicago",
			SeasonCap:        "300",
			FeedTimeout:      duration{10 * time.Second},
			HeadroomCacheTTL: duration{time.Minute},
		},
		Auction: AuctionConfig{
			Name:               "Free Agent Auction",
			NominationDuration: duration{48 * time.Hour},
			StartDelay:         duration{504 * time.Hour},
			MaxBid:             200,
			JumpThreshold:      5,
			CommitTimeout:      duration{5 * time.Second},
			LockTTL:            duration{10 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "auctiond",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "auctiond-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:          8000,
			CORSOrigins:   []string{"http://localhost:3000"},
			BidRateLimit:  10,
			BidRateWindow: duration{time.Second},
		},
		Notify: NotifyConfig{
			Events: []string{"bid_accepted", "lot_reset"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode. "serve" runs the
// full stack; "local" runs with in-memory storage and no Redis or S3, for
// development.
var validModes = map[string]bool{
	"serve": true,
	"local": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, local)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// League
	if c.League.Timezone == "" {
		errs = append(errs, "league: timezone must not be empty")
	}
	if len(c.League.Participants) == 0 {
		errs = append(errs, "league: at least one participant must be configured")
	}
	seen := make(map[string]bool, len(c.League.Participants))
	for i, p := range c.League.Participants {
		if p.ID == "" {
			errs = append(errs, fmt.Sprintf("league: participants[%d]: id must not be empty", i))
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Sprintf("league: participants[%d]: duplicate id %q", i, p.ID))
		}
		seen[p.ID] = true
	}
	if c.League.ContractsURL == "" || c.League.FinesURL == "" {
		errs = append(errs, "league: contracts_url and fines_url must both be set")
	}

	// Auction
	if c.Auction.Start != "" {
		if _, err := time.Parse(time.RFC3339, c.Auction.Start); err != nil {
			errs = append(errs, fmt.Sprintf("auction: start must be RFC 3339: %v", err))
		}
	}
	if c.Auction.NominationDuration.Duration <= 0 {
		errs = append(errs, "auction: nomination_duration must be positive")
	}
	if c.Auction.MaxBid <= 0 {
		errs = append(errs, "auction: max_bid must be positive")
	}
	if c.Auction.JumpThreshold < 0 {
		errs = append(errs, "auction: jump_threshold must not be negative")
	}
	if c.Auction.CommitTimeout.Duration <= 0 {
		errs = append(errs, "auction: commit_timeout must be positive")
	}
	if c.Auction.LockTTL.Duration <= 0 {
		errs = append(errs, "auction: lock_ttl must be positive")
	}
	lotIDs := make(map[string]bool, len(c.Auction.Lots))
	for i, lot := range c.Auction.Lots {
		if lot.ID == "" {
			errs = append(errs, fmt.Sprintf("auction: lots[%d]: id must not be empty", i))
		}
		if lot.PlayerName == "" {
			errs = append(errs, fmt.Sprintf("auction: lots[%d]: player_name must not be empty", i))
		}
		if lotIDs[lot.ID] {
			errs = append(errs, fmt.Sprintf("auction: lots[%d]: duplicate id %q", i, lot.ID))
		}
		lotIDs[lot.ID] = true
	}

	// Postgres, only required in serve mode.
	if strings.ToLower(c.Mode) == "serve" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.BidRateLimit < 0 {
		errs = append(errs, "server: bid_rate_limit must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
