package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lalder95/auctiond/internal/domain"
)

// AuctionStore implements domain.AuctionStore using PostgreSQL. The engine
// manages a single global auction, so the table holds at most one row per
// auction ID and reads return the most recently saved record.
type AuctionStore struct {
	pool *pgxpool.Pool
}

// NewAuctionStore creates an AuctionStore backed by the given pool.
func NewAuctionStore(pool *pgxpool.Pool) *AuctionStore {
	return &AuctionStore{pool: pool}
}

// Save upserts the auction record.
func (s *AuctionStore) Save(ctx context.Context, a domain.Auction) error {
	const query = `
		INSERT INTO auctions (id, name, start_at, nomination_duration, max_bid, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			start_at = EXCLUDED.start_at,
			nomination_duration = EXCLUDED.nomination_duration,
			max_bid = EXCLUDED.max_bid,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.Name, a.Start, a.NominationDuration.Nanoseconds(), a.MaxBid,
	)
	if err != nil {
		return fmt.Errorf("postgres: save auction %s: %w", a.ID, err)
	}
	return nil
}

// Get returns the configured auction, or domain.ErrNotFound when none exists.
func (s *AuctionStore) Get(ctx context.Context) (domain.Auction, error) {
	const query = `
		SELECT id, name, start_at, nomination_duration, max_bid
		FROM auctions
		ORDER BY updated_at DESC
		LIMIT 1`

	var a domain.Auction
	var nomNanos int64
	err := s.pool.QueryRow(ctx, query).Scan(
		&a.ID, &a.Name, &a.Start, &nomNanos, &a.MaxBid,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Auction{}, domain.ErrNotFound
		}
		return domain.Auction{}, fmt.Errorf("postgres: get auction: %w", err)
	}
	a.NominationDuration = time.Duration(nomNanos)
	return a, nil
}

var _ domain.AuctionStore = (*AuctionStore)(nil)
