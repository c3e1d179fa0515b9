package auction

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalder95/auctiond/internal/clock"
	"github.com/lalder95/auctiond/internal/directory"
	"github.com/lalder95/auctiond/internal/domain"
	"github.com/lalder95/auctiond/internal/store/memory"
)

// newEngineFixture seeds three lots around the fake clock: one already ended,
// one mid-window with a bid, one not yet open.
func newEngineFixture(t *testing.T) (*Engine, *clock.Fake) {
	t.Helper()

	mem := memory.New()
	ctx := context.Background()

	require.NoError(t, mem.Save(ctx, domain.Auction{
		ID:                 "auction-1",
		Name:               "2026 Free Agency",
		Start:              testStart,
		NominationDuration: 48 * time.Hour,
		MaxBid:             200,
	}))

	require.NoError(t, mem.Create(ctx, domain.Lot{ID: "lot-ended", PlayerName: "Early Player"}))
	require.NoError(t, mem.Create(ctx, domain.Lot{
		ID:         "lot-active",
		PlayerName: "Mid Player",
		StartDelay: 72 * time.Hour,
	}))
	require.NoError(t, mem.Create(ctx, domain.Lot{
		ID:         "lot-upcoming",
		PlayerName: "Late Player",
		StartDelay: 300 * time.Hour,
	}))

	require.NoError(t, mem.AppendBid(ctx, "lot-active", domain.Bid{
		ID:          "b1",
		LotID:       "lot-active",
		BidderID:    "team-a",
		Amount:      50,
		SubmittedAt: testStart.Add(80 * time.Hour),
	}))

	caps := fixedCaps{headroom: decimal.NewFromInt(150)}
	dir := directory.New([]directory.Member{
		{ID: "team-a", DisplayName: "Team A"},
		{ID: "team-b", DisplayName: "Team B"},
	}, caps)

	clk := clock.NewFake(testStart.Add(90 * time.Hour))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewEngine(mem, memory.Lots{Store: mem}, mem, dir, caps, clk, logger), clk
}

func TestEngine_Snapshot(t *testing.T) {
	e, clk := newEngineFixture(t)

	snap, err := e.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "auction-1", snap.AuctionID)
	assert.Equal(t, clk.Now(), snap.Now)
	require.Len(t, snap.Lots, 3)
	assert.Equal(t, 1, snap.Ended)
	assert.Equal(t, 1, snap.Active)
	assert.Equal(t, 1, snap.Upcoming)

	byID := make(map[string]LotView, len(snap.Lots))
	for _, v := range snap.Lots {
		byID[v.ID] = v
	}

	ended := byID["lot-ended"]
	assert.Equal(t, domain.LotStatusEnded, ended.Status)
	assert.Zero(t, ended.EndsInSec)

	active := byID["lot-active"]
	assert.Equal(t, domain.LotStatusActive, active.Status)
	require.NotNil(t, active.CurrentHigh)
	assert.Equal(t, 50, active.CurrentHigh.Amount)
	assert.Equal(t, 1, active.BidCount)
	assert.Positive(t, active.EndsInSec)
	// The $50 high decays the window past the bid instant, so the 24-hour
	// anti-snipe floor after the +80h bid sets the end.
	assert.Equal(t, testStart.Add(104*time.Hour), active.End)

	upcoming := byID["lot-upcoming"]
	assert.Equal(t, domain.LotStatusUpcoming, upcoming.Status)
	assert.Positive(t, upcoming.StartsInSec)
	assert.Nil(t, upcoming.CurrentHigh)
}

func TestEngine_SnapshotStandings(t *testing.T) {
	e, _ := newEngineFixture(t)

	snap, err := e.Snapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Standings, 2)
	// Sorted by display name, every roster member present.
	a := snap.Standings[0]
	assert.Equal(t, "team-a", a.ParticipantID)
	assert.True(t, decimal.NewFromInt(50).Equal(a.Committed))
	require.NotNil(t, a.Headroom)
	assert.True(t, decimal.NewFromInt(150).Equal(*a.Headroom))
	require.NotNil(t, a.Remaining)
	assert.True(t, decimal.NewFromInt(100).Equal(*a.Remaining))

	b := snap.Standings[1]
	assert.Equal(t, "team-b", b.ParticipantID)
	assert.True(t, decimal.Zero.Equal(b.Committed))
}

func TestEngine_SnapshotNoAuction(t *testing.T) {
	mem := memory.New()
	caps := fixedCaps{headroom: decimal.Zero}
	e := NewEngine(mem, memory.Lots{Store: mem}, mem,
		directory.New(nil, caps), caps,
		clock.NewFake(testStart),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := e.Snapshot(context.Background())

	assert.ErrorIs(t, err, domain.ErrNoAuction)
}

func TestEngine_Lot(t *testing.T) {
	e, _ := newEngineFixture(t)

	view, err := e.Lot(context.Background(), "lot-active")
	require.NoError(t, err)
	assert.Equal(t, "Mid Player", view.PlayerName)
	assert.Equal(t, domain.LotStatusActive, view.Status)

	_, err = e.Lot(context.Background(), "lot-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_EndedLots(t *testing.T) {
	e, clk := newEngineFixture(t)

	auctionID, ended, err := e.EndedLots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "auction-1", auctionID)
	require.Len(t, ended, 1)
	assert.Equal(t, "lot-ended", ended[0].ID)

	// Once everything has closed, all three lots are archival candidates.
	clk.Set(testStart.Add(10000 * time.Hour))
	_, ended, err = e.EndedLots(context.Background())
	require.NoError(t, err)
	assert.Len(t, ended, 3)
}
