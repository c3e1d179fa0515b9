// Package memory implements the domain store interfaces with in-process
// maps. It backs the local operating mode and the engine's tests; the
// postgres package is the production implementation.
package memory

import (
	"context"
	"sync"

	"github.com/lalder95/auctiond/internal/domain"
)

// Store holds the auction, its lots, and the append-only bid log behind one
// RWMutex. Reads copy out so callers never alias internal slices.
type Store struct {
	mu      sync.RWMutex
	auction *domain.Auction
	lots    map[string]*domain.Lot
	order   []string // lot insertion order, for stable listings
	bidlog  []domain.Bid
}

// New creates an empty Store.
func New() *Store {
	return &Store{lots: make(map[string]*domain.Lot)}
}

// Save stores the auction record.
func (s *Store) Save(_ context.Context, a domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auction = &a
	return nil
}

// Get returns the auction record, or ErrNotFound when none is configured.
func (s *Store) Get(_ context.Context) (domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.auction == nil {
		return domain.Auction{}, domain.ErrNotFound
	}
	return *s.auction, nil
}

// Create adds a lot. The lot's existing bids, if any, are copied in.
func (s *Store) Create(_ context.Context, lot domain.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lots[lot.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := lot
	cp.Bids = append([]domain.Bid(nil), lot.Bids...)
	s.lots[lot.ID] = &cp
	s.order = append(s.order, lot.ID)
	return nil
}

// GetLot returns a copy of the lot with its ledger.
func (s *Store) GetLot(_ context.Context, id string) (domain.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.lots[id]
	if !ok {
		return domain.Lot{}, domain.ErrNotFound
	}
	return copyLot(lot), nil
}

// List returns all lots in insertion order.
func (s *Store) List(_ context.Context) ([]domain.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Lot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyLot(s.lots[id]))
	}
	return out, nil
}

// AppendBid appends one accepted bid to the lot's ledger.
func (s *Store) AppendBid(_ context.Context, lotID string, bid domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return domain.ErrNotFound
	}
	lot.Bids = append(lot.Bids, bid)
	return nil
}

// ClearBids removes the lot's entire ledger.
func (s *Store) ClearBids(_ context.Context, lotID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	n := int64(len(lot.Bids))
	lot.Bids = nil
	return n, nil
}

// Append adds a bid to the append-only log.
func (s *Store) Append(_ context.Context, bid domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bidlog = append(s.bidlog, bid)
	return nil
}

// ListRecent returns up to limit logged bids, newest first.
func (s *Store) ListRecent(_ context.Context, limit int) ([]domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.bidlog)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Bid, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.bidlog[i])
	}
	return out, nil
}

func copyLot(lot *domain.Lot) domain.Lot {
	cp := *lot
	cp.Bids = append([]domain.Bid(nil), lot.Bids...)
	return cp
}

// Lots adapts the Store to domain.LotStore. The auction store and lot store
// are separate types in the postgres package but share one Store here, and
// both interfaces name their getter Get, so the lot-flavored Get lives on
// this thin wrapper.
type Lots struct{ *Store }

// Get returns the lot by ID.
func (l Lots) Get(ctx context.Context, id string) (domain.Lot, error) {
	return l.GetLot(ctx, id)
}

var (
	_ domain.AuctionStore = (*Store)(nil)
	_ domain.BidLogStore  = (*Store)(nil)
	_ domain.LotStore     = Lots{}
)
