package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lalder95/auctiond/internal/domain"
)

// LotStore implements domain.LotStore using PostgreSQL. Ledger reads order
// bids by their acceptance sequence, not the submitted timestamp, so the
// order the commit service decided on is the order everyone observes.
type LotStore struct {
	pool *pgxpool.Pool
}

// NewLotStore creates a LotStore backed by the given pool.
func NewLotStore(pool *pgxpool.Pool) *LotStore {
	return &LotStore{pool: pool}
}

// Create inserts a new lot. Ledger entries are never inserted here; lots are
// created empty before the auction starts.
func (s *LotStore) Create(ctx context.Context, lot domain.Lot) error {
	const query = `
		INSERT INTO lots (id, player_id, player_name, position, start_delay, nomination_duration)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		lot.ID, lot.PlayerID, lot.PlayerName, lot.Position,
		lot.StartDelay.Nanoseconds(), lot.NominationDuration.Nanoseconds(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create lot %s: %w", lot.ID, err)
	}
	return nil
}

// Get returns one lot with its full ledger in acceptance order.
func (s *LotStore) Get(ctx context.Context, id string) (domain.Lot, error) {
	const query = `
		SELECT id, player_id, player_name, position, start_delay, nomination_duration
		FROM lots WHERE id = $1`

	lot, err := scanLot(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lot{}, domain.ErrNotFound
		}
		return domain.Lot{}, fmt.Errorf("postgres: get lot %s: %w", id, err)
	}

	bids, err := s.lotBids(ctx, id)
	if err != nil {
		return domain.Lot{}, err
	}
	lot.Bids = bids
	return lot, nil
}

// List returns every lot with its ledger.
func (s *LotStore) List(ctx context.Context) ([]domain.Lot, error) {
	const query = `
		SELECT id, player_id, player_name, position, start_delay, nomination_duration
		FROM lots ORDER BY start_delay, id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list lots: %w", err)
	}
	defer rows.Close()

	var lots []domain.Lot
	index := make(map[string]int)
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan lot: %w", err)
		}
		index[lot.ID] = len(lots)
		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list lots: %w", err)
	}

	// One pass over all bids instead of a query per lot.
	const bidQuery = `
		SELECT id, lot_id, bidder_id, amount, submitted_at
		FROM bids ORDER BY lot_id, seq`

	bidRows, err := s.pool.Query(ctx, bidQuery)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bids: %w", err)
	}
	defer bidRows.Close()

	for bidRows.Next() {
		var b domain.Bid
		if err := bidRows.Scan(&b.ID, &b.LotID, &b.BidderID, &b.Amount, &b.SubmittedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan bid: %w", err)
		}
		if i, ok := index[b.LotID]; ok {
			lots[i].Bids = append(lots[i].Bids, b)
		}
	}
	if err := bidRows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bids: %w", err)
	}

	return lots, nil
}

// AppendBid inserts one accepted bid at the end of the lot's ledger.
func (s *LotStore) AppendBid(ctx context.Context, lotID string, bid domain.Bid) error {
	const query = `
		INSERT INTO bids (id, lot_id, bidder_id, amount, submitted_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		bid.ID, lotID, bid.BidderID, bid.Amount, bid.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append bid to lot %s: %w", lotID, err)
	}
	return nil
}

// ClearBids deletes the lot's entire ledger and reports how many entries
// were removed. Returns domain.ErrNotFound for an unknown lot.
func (s *LotStore) ClearBids(ctx context.Context, lotID string) (int64, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM lots WHERE id = $1)", lotID,
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("postgres: check lot %s: %w", lotID, err)
	}
	if !exists {
		return 0, domain.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM bids WHERE lot_id = $1", lotID)
	if err != nil {
		return 0, fmt.Errorf("postgres: clear bids for lot %s: %w", lotID, err)
	}
	return tag.RowsAffected(), nil
}

func (s *LotStore) lotBids(ctx context.Context, lotID string) ([]domain.Bid, error) {
	const query = `
		SELECT id, lot_id, bidder_id, amount, submitted_at
		FROM bids WHERE lot_id = $1 ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("postgres: bids for lot %s: %w", lotID, err)
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(&b.ID, &b.LotID, &b.BidderID, &b.Amount, &b.SubmittedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: bids for lot %s: %w", lotID, err)
	}
	return bids, nil
}

func scanLot(scanner interface{ Scan(dest ...any) error }) (domain.Lot, error) {
	var lot domain.Lot
	var delayNanos, nomNanos int64
	err := scanner.Scan(
		&lot.ID, &lot.PlayerID, &lot.PlayerName, &lot.Position,
		&delayNanos, &nomNanos,
	)
	if err != nil {
		return domain.Lot{}, err
	}
	lot.StartDelay = time.Duration(delayNanos)
	lot.NominationDuration = time.Duration(nomNanos)
	return lot, nil
}

var _ domain.LotStore = (*LotStore)(nil)
