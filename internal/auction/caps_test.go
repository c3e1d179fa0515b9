package auction

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/lalder95/auctiond/internal/domain"
)

func lotWithBids(id string, bids ...domain.Bid) domain.Lot {
	return domain.Lot{ID: id, PlayerName: "Player " + id, Bids: bids}
}

func ledgerBid(bidder string, amount int) domain.Bid {
	return domain.Bid{BidderID: bidder, Amount: amount, SubmittedAt: time.Now()}
}

func TestCommittedSpend(t *testing.T) {
	lots := []domain.Lot{
		// team-a holds the high here.
		lotWithBids("lot-1", ledgerBid("team-b", 10), ledgerBid("team-a", 15)),
		// team-a was outbid; nothing committed on this lot.
		lotWithBids("lot-2", ledgerBid("team-a", 20), ledgerBid("team-b", 25)),
		lotWithBids("lot-3", ledgerBid("team-a", 7)),
		lotWithBids("lot-4"),
	}

	assert.True(t, decimal.NewFromInt(22).Equal(CommittedSpend(lots, "team-a")))
	assert.True(t, decimal.NewFromInt(25).Equal(CommittedSpend(lots, "team-b")))
	assert.True(t, decimal.Zero.Equal(CommittedSpend(lots, "team-c")))
}

func TestCommittedSpendExcluding(t *testing.T) {
	lots := []domain.Lot{
		lotWithBids("lot-1", ledgerBid("team-a", 15)),
		lotWithBids("lot-2", ledgerBid("team-a", 30)),
	}

	// Raising their own high on lot-1 charges only the other lot.
	got := CommittedSpendExcluding(lots, "team-a", "lot-1")
	assert.True(t, decimal.NewFromInt(30).Equal(got))
}

func TestSpendByParticipant(t *testing.T) {
	lots := []domain.Lot{
		lotWithBids("lot-1", ledgerBid("team-a", 15)),
		lotWithBids("lot-2", ledgerBid("team-b", 5), ledgerBid("team-a", 10)),
		lotWithBids("lot-3", ledgerBid("team-b", 40)),
		lotWithBids("lot-4"),
	}

	spend := SpendByParticipant(lots)

	assert.Len(t, spend, 2)
	assert.True(t, decimal.NewFromInt(25).Equal(spend["team-a"]))
	assert.True(t, decimal.NewFromInt(40).Equal(spend["team-b"]))
}
