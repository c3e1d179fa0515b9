package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_BidAccepted(t *testing.T) {
	title, message, ok := render(busEvent{
		Event:    "bid_accepted",
		LotID:    "lot-1",
		Player:   "Justin Jefferson",
		BidderID: "team-a",
		Amount:   42,
	})

	assert.True(t, ok)
	assert.Equal(t, "New bid", title)
	assert.Equal(t, "Justin Jefferson: $42 by team-a on lot-1", message)
}

func TestRender_LotReset(t *testing.T) {
	title, message, ok := render(busEvent{
		Event:       "lot_reset",
		LotID:       "lot-1",
		Player:      "Justin Jefferson",
		BidsRemoved: 3,
	})

	assert.True(t, ok)
	assert.Equal(t, "Lot reset", title)
	assert.Equal(t, "Justin Jefferson (lot-1): 3 bids removed", message)
}

func TestRender_UnknownEventSkipped(t *testing.T) {
	_, _, ok := render(busEvent{Event: "lot_closed_v2"})
	assert.False(t, ok)
}
