package domain

import (
	"context"
)

// AuctionStore persists the single global auction record.
type AuctionStore interface {
	Save(ctx context.Context, a Auction) error
	Get(ctx context.Context) (Auction, error)
}

// LotStore persists lots and their bid ledgers. Get and List always return
// each lot's bids ordered by acceptance. AppendBid and ClearBids are the only
// ledger mutations; both are invoked exclusively by the commit service under
// its per-lot exclusion.
type LotStore interface {
	Create(ctx context.Context, lot Lot) error
	Get(ctx context.Context, id string) (Lot, error)
	List(ctx context.Context) ([]Lot, error)
	AppendBid(ctx context.Context, lotID string, bid Bid) error
	// ClearBids removes the lot's entire ledger and returns the number of
	// bids removed. Used by the administrative reset.
	ClearBids(ctx context.Context, lotID string) (int64, error)
}

// BidLogStore is the append-only record of every accepted bid across all
// lots. Unlike the per-lot ledger it survives administrative resets, so it
// doubles as the audit trail.
type BidLogStore interface {
	Append(ctx context.Context, bid Bid) error
	// ListRecent returns up to limit accepted bids, newest first.
	ListRecent(ctx context.Context, limit int) ([]Bid, error)
}
