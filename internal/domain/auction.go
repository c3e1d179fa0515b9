// Package domain defines the core types and interfaces for the free-agent
// auction engine: the auction record, its lots, the per-lot bid ledger, and
// the collaborator interfaces (stores, caches, directory, cap source) that
// concrete implementations satisfy.
package domain

import (
	"time"
)

// LotStatus classifies a lot's position in its lifecycle. It is always
// derived from (now, start, end) and never persisted.
type LotStatus string

const (
	LotStatusUpcoming LotStatus = "upcoming"
	LotStatusActive   LotStatus = "active"
	LotStatusEnded    LotStatus = "ended"
)

// Auction is the single global auction record. Lots are stored separately and
// inherit NominationDuration unless they carry their own override.
type Auction struct {
	ID                 string
	Name               string
	Start              time.Time // league civil time
	NominationDuration time.Duration
	MaxBid             int // per-lot bid ceiling in currency units
}

// Lot is one player up for bid. Bids is the append-only ledger ordered by
// acceptance; start/end/status/current-high are derived, never stored.
type Lot struct {
	ID                 string
	PlayerID           string
	PlayerName         string
	Position           string
	StartDelay         time.Duration // offset from Auction.Start
	NominationDuration time.Duration // 0 means inherit the auction default
	Bids               []Bid
}

// CurrentHigh returns the latest accepted bid for the lot, or false when the
// lot has no bids yet.
func (l Lot) CurrentHigh() (Bid, bool) {
	if len(l.Bids) == 0 {
		return Bid{}, false
	}
	return l.Bids[len(l.Bids)-1], true
}

// HighAmount returns the current high bid amount, or 0 with no bids.
func (l Lot) HighAmount() int {
	if b, ok := l.CurrentHigh(); ok {
		return b.Amount
	}
	return 0
}

// Nomination resolves the lot's effective nomination duration against the
// auction-wide default.
func (l Lot) Nomination(auctionDefault time.Duration) time.Duration {
	if l.NominationDuration > 0 {
		return l.NominationDuration
	}
	return auctionDefault
}

// Bid is one accepted ledger entry. SubmittedAt is assigned by the commit
// service at acceptance time, so within a lot it increases monotonically.
type Bid struct {
	ID          string    `json:"id"`
	LotID       string    `json:"lot_id"`
	BidderID    string    `json:"bidder_id"`
	Amount      int       `json:"amount"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Schedule is the derived bidding window for a lot.
type Schedule struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
