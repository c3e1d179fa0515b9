// Package schedule derives each lot's bidding window and status. Everything
// here is a pure function of the lot's static parameters, its bid ledger, and
// the current instant: two callers computing at the same moment always agree,
// and nothing in this package is ever cached as a source of truth.
package schedule

import (
	"time"

	"github.com/lalder95/auctiond/internal/domain"
)

const (
	// DecayPerUnit shortens the remaining nomination window by roughly 1.38%
	// per currency unit of the current high bid.
	DecayPerUnit = 0.0138

	// MaxDecay caps the bid-driven shortening at a 95% reduction.
	MaxDecay = 0.95

	// AntiSnipeWindow guarantees a lot cannot close earlier than this long
	// after its most recent accepted bid. The window is fixed regardless of
	// the nomination duration: any nomination shorter than 24 hours is
	// deliberately re-opened to a rolling 24-hour window once a bid lands.
	AntiSnipeWindow = 24 * time.Hour
)

// Params are the static inputs to the window derivation.
type Params struct {
	AuctionStart time.Time
	StartDelay   time.Duration
	Nomination   time.Duration
}

// Calc derives a lot's {start, end} from its parameters and bid ledger.
//
//	start    = auctionStart + startDelay
//	decay(b) = min(b.amount * DecayPerUnit, MaxDecay)
//	end(b)   = max(start + nomination*(1 - decay(b)), b.at + AntiSnipeWindow)
//	end      = max over all accepted bids of end(b)
//
// The per-bid step is preserved literally from the reference behavior,
// including the dominance of the 24-hour floor over minutes-scale nomination
// windows. Taking the running maximum keeps end non-decreasing in the bid
// sequence: a higher bid grows the decay and would otherwise pull the derived
// end back in whenever the remaining window exceeds the anti-snipe floor.
func Calc(p Params, bids []domain.Bid) domain.Schedule {
	start := p.AuctionStart.Add(p.StartDelay)

	if len(bids) == 0 {
		return domain.Schedule{Start: start, End: start.Add(p.Nomination)}
	}

	var end time.Time
	for i, b := range bids {
		decay := float64(b.Amount) * DecayPerUnit
		if decay > MaxDecay {
			decay = MaxDecay
		}
		e := start.Add(time.Duration(float64(p.Nomination) * (1 - decay)))
		if floor := b.SubmittedAt.Add(AntiSnipeWindow); floor.After(e) {
			e = floor
		}
		if i == 0 || e.After(end) {
			end = e
		}
	}

	return domain.Schedule{Start: start, End: end}
}

// Status classifies a lot at the given instant. The half-open window
// [start, end) means a lot is Active at exactly its start and Ended at
// exactly its end.
func Status(now time.Time, s domain.Schedule) domain.LotStatus {
	switch {
	case now.Before(s.Start):
		return domain.LotStatusUpcoming
	case now.Before(s.End):
		return domain.LotStatusActive
	default:
		return domain.LotStatusEnded
	}
}
