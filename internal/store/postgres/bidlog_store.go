package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lalder95/auctiond/internal/domain"
)

// BidLogStore is the append-only audit trail. Unlike the bids table it is
// never cleared by an admin reset.
type BidLogStore struct {
	pool *pgxpool.Pool
}

func NewBidLogStore(pool *pgxpool.Pool) *BidLogStore {
	return &BidLogStore{pool: pool}
}

// Append records one accepted bid in the audit log.
func (s *BidLogStore) Append(ctx context.Context, bid domain.Bid) error {
	const query = `
		INSERT INTO bid_log (bid_id, lot_id, bidder_id, amount, submitted_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		bid.ID, bid.LotID, bid.BidderID, bid.Amount, bid.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append bid log: %w", err)
	}
	return nil
}

// ListRecent returns up to limit log entries, newest first.
func (s *BidLogStore) ListRecent(ctx context.Context, limit int) ([]domain.Bid, error) {
	const query = `
		SELECT bid_id, lot_id, bidder_id, amount, submitted_at
		FROM bid_log ORDER BY seq DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bid log: %w", err)
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(&b.ID, &b.LotID, &b.BidderID, &b.Amount, &b.SubmittedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan bid log: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bid log: %w", err)
	}
	return bids, nil
}

var _ domain.BidLogStore = (*BidLogStore)(nil)
