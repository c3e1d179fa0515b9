// Package auction implements the engine around the bid ledger: pure bid
// validation, cap accounting, the read-side snapshot assembly, and the single
// write choke point that serializes commits per lot.
package auction

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/lalder95/auctiond/internal/domain"
)

// ProposedBid is a bid as submitted at the boundary. Amount stays a float
// until validation so a non-integral submission is rejected with its own
// reason instead of being silently truncated.
type ProposedBid struct {
	LotID     string
	BidderID  string
	Amount    float64
	Confirmed bool
}

// ValidationContext carries everything Validate needs to decide: the lot's
// derived status, the authoritative ledger high, the fixed ceiling, the
// bidder's eligibility, and the cap numbers. Committed must already exclude
// the bidder's own standing high on this lot, since a new bid replaces it.
type ValidationContext struct {
	Status      domain.LotStatus
	CurrentHigh *domain.Bid
	Ceiling     int
	Eligible    bool
	Committed   decimal.Decimal
	Headroom    decimal.Decimal
}

// Validate accepts or rejects a proposed bid. A nil return means the bid is
// legal against the given context; otherwise the rejection names the specific
// reason and carries the current high so the caller can immediately retry
// with a valid amount.
func Validate(p ProposedBid, vc ValidationContext) *domain.BidRejection {
	reject := func(reason domain.RejectReason, msg string) *domain.BidRejection {
		return &domain.BidRejection{Reason: reason, Message: msg, CurrentHigh: vc.CurrentHigh}
	}

	if !vc.Eligible {
		return reject(domain.RejectNotEligible,
			fmt.Sprintf("%s is not a recognized participant in this auction", p.BidderID))
	}

	if vc.Status != domain.LotStatusActive {
		return reject(domain.RejectNotActive,
			fmt.Sprintf("lot is %s; bids are only accepted while it is active", vc.Status))
	}

	if p.Amount != math.Trunc(p.Amount) || math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) {
		return reject(domain.RejectNotIntegral, "bid must be a whole number")
	}
	amount := int(p.Amount)

	if amount > vc.Ceiling {
		return reject(domain.RejectExceedsCeiling,
			fmt.Sprintf("bid may not exceed the $%d lot ceiling", vc.Ceiling))
	}

	high := 0
	if vc.CurrentHigh != nil {
		high = vc.CurrentHigh.Amount
	}
	if amount <= high {
		return reject(domain.RejectTooLow,
			fmt.Sprintf("bid must exceed $%d", high))
	}

	projected := vc.Committed.Add(decimal.NewFromInt(int64(amount)))
	if projected.GreaterThan(vc.Headroom) {
		return reject(domain.RejectCapExceeded,
			fmt.Sprintf("bid would raise committed spend to $%s, over the $%s cap headroom",
				projected.StringFixed(1), vc.Headroom.StringFixed(1)))
	}

	return nil
}
