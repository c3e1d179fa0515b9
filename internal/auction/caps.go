package auction

import (
	"github.com/shopspring/decimal"

	"github.com/lalder95/auctiond/internal/domain"
)

// CommittedSpend sums the bidder's current high bids across all lots. A
// participant only commits money on lots where they hold the high bid;
// outbid amounts are released immediately.
func CommittedSpend(lots []domain.Lot, bidderID string) decimal.Decimal {
	return committedSpend(lots, bidderID, "")
}

// CommittedSpendExcluding is CommittedSpend with one lot left out. The cap
// check uses it so a bidder raising their own high on a lot is charged for
// the replacement amount, not both bids.
func CommittedSpendExcluding(lots []domain.Lot, bidderID, excludeLotID string) decimal.Decimal {
	return committedSpend(lots, bidderID, excludeLotID)
}

func committedSpend(lots []domain.Lot, bidderID, excludeLotID string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range lots {
		if lot.ID == excludeLotID {
			continue
		}
		if high, ok := lot.CurrentHigh(); ok && high.BidderID == bidderID {
			total = total.Add(decimal.NewFromInt(int64(high.Amount)))
		}
	}
	return total
}

// SpendByParticipant aggregates committed spend for every participant that
// currently holds at least one high bid.
func SpendByParticipant(lots []domain.Lot) map[string]decimal.Decimal {
	spend := make(map[string]decimal.Decimal)
	for _, lot := range lots {
		high, ok := lot.CurrentHigh()
		if !ok {
			continue
		}
		cur, seen := spend[high.BidderID]
		if !seen {
			cur = decimal.Zero
		}
		spend[high.BidderID] = cur.Add(decimal.NewFromInt(int64(high.Amount)))
	}
	return spend
}
