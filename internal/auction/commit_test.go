package auction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
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

type fixedCaps struct {
	headroom decimal.Decimal
	err      error
}

func (f fixedCaps) Headroom(context.Context, string) (decimal.Decimal, error) {
	return f.headroom, f.err
}

type failingBidLog struct{}

func (failingBidLog) Append(context.Context, domain.Bid) error {
	return errors.New("audit store offline")
}

func (failingBidLog) ListRecent(context.Context, int) ([]domain.Bid, error) {
	return nil, errors.New("audit store offline")
}

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type commitFixture struct {
	svc   *CommitService
	store *memory.Store
	clk   *clock.Fake
}

// newCommitFixture wires a commit service over the memory store with one
// auction and one lot that opens at testStart. The clock starts an hour into
// the lot's window.
func newCommitFixture(t *testing.T, caps domain.CapSource, cfg CommitConfig) *commitFixture {
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
	require.NoError(t, mem.Create(ctx, domain.Lot{
		ID:         "lot-1",
		PlayerID:   "p1",
		PlayerName: "Justin Jefferson",
		Position:   "WR",
	}))

	members := []directory.Member{
		{ID: "team-a", DisplayName: "Team A"},
		{ID: "team-b", DisplayName: "Team B"},
	}

	if cfg.CommitTimeout == 0 {
		cfg.CommitTimeout = 5 * time.Second
	}

	clk := clock.NewFake(testStart.Add(time.Hour))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewCommitService(
		mem,
		memory.Lots{Store: mem},
		mem,
		directory.New(members, caps),
		caps,
		nil,
		nil,
		clk,
		cfg,
		logger,
	)
	return &commitFixture{svc: svc, store: mem, clk: clk}
}

func TestPlaceBid_Accepted(t *testing.T) {
	f := newCommitFixture(t, fixedCaps{headroom: decimal.NewFromInt(300)}, CommitConfig{})
	ctx := context.Background()

	bid, rej, err := f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: 3})

	require.NoError(t, err)
	require.Nil(t, rej)
	assert.NotEmpty(t, bid.ID)
	assert.Equal(t, "lot-1", bid.LotID)
	assert.Equal(t, "team-a", bid.BidderID)
	assert.Equal(t, 3, bid.Amount)
	assert.Equal(t, f.clk.Now(), bid.SubmittedAt)

	lot, err := f.store.GetLot(ctx, "lot-1")
	require.NoError(t, err)
	require.Len(t, lot.Bids, 1)
	assert.Equal(t, bid, lot.Bids[0])

	logged, err := f.store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, bid.ID, logged[0].ID)
}

func TestPlaceBid_JumpRequiresConfirmation(t *testing.T) {
	f := newCommitFixture(t, fixedCaps{headroom: decimal.NewFromInt(300)}, CommitConfig{JumpThreshold: 5})
	ctx := context.Background()

	_, rej, err := f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: 10})
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Equal(t, domain.RejectConfirmRequired, rej.Reason)

	// Nothing landed on the ledger.
	lot, err := f.store.GetLot(ctx, "lot-1")
	require.NoError(t, err)
	assert.Empty(t, lot.Bids)

	// The confirmed resubmission goes through.
	bid, rej, err := f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: 10, Confirmed: true})
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.Equal(t, 10, bid.Amount)
}

func TestPlaceBid_TieLoses(t *testing.T) {
	f := newCommitFixture(t, fixedCaps{headroom: decimal.NewFromInt(300)}, CommitConfig{})
	ctx := context.Background()

	_, rej, err := f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: 4})
	require.NoError(t, err)
	require.Nil(t, rej)

	_, rej, err = f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-b", Amount: 4})
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Equal(t, domain.RejectTooLow, rej.Reason)
	require.NotNil(t, rej.CurrentHigh)
	assert.Equal(t, "team-a", rej.CurrentHigh.BidderID)
}

func TestPlaceBid_ConcurrentSameAmount(t *testing.T) {
	f := newCommitFixture(t, fixedCaps{headroom: decimal.NewFromInt(300)}, CommitConfig{})
	ctx := context.Background()

	type outcome struct {
		rej *domain.BidRejection
		err error
	}
	results := make([]outcome, 2)

	var wg sync.WaitGroup
	for i, bidder := range []string{"team-a", "team-b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, rej, err := f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: bidder, Amount: 4})
			results[i] = outcome{rej: rej, err: err}
		}()
	}
	wg.Wait()

	var accepted, tooLow int
	for _, r := range results {
		require.NoError(t, r.err)
		if r.rej == nil {
			accepted++
		} else if r.rej.Reason == domain.RejectTooLow {
			tooLow++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, tooLow)

	lot, err := f.store.GetLot(ctx, "lot-1")
	require.NoError(t, err)
	assert.Len(t, lot.Bids, 1)
}

func TestPlaceBid_UnknownBidder(t *testing.T) {
	f := newCommitFixture(t, fixedCaps{headroom: decimal.NewFromInt(300)}, CommitConfig{})

	_, rej, err := f.svc.PlaceBid(context.Background(), ProposedBid{LotID: "lot-1", BidderID: "team-z", Amount: 3})

	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Equal(t, domain.RejectNotEligible, rej.Reason)
}

func TestPlaceBid_CapSourceDownRefusesBid(t *testing.T) {
	f := newCommitFixture(t, fixedCaps{err: errors.New("feed timeout")}, CommitConfig{})

	_, rej, err := f.svc.PlaceBid(context.Background(), ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: 3})

	assert.Nil(t, rej)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCollaboratorDown)
}

func TestPlaceBid_NoAuction(t *testing.T) {
	mem := memory.New()
	caps := fixedCaps{headroom: decimal.NewFromInt(300)}

	svc := NewCommitService(
		mem,
		memory.Lots{Store: mem},
		mem,
		directory.New([]directory.Member{{ID: "team-a"}}, caps),
		caps,
		nil,
		nil,
		clock.NewFake(testStart),
		CommitConfig{CommitTimeout: time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	_, _, err := svc.PlaceBid(context.Background(), ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: 3})

	assert.ErrorIs(t, err, domain.ErrNoAuction)
}

func TestPlaceBid_CapAcrossLots(t *testing.T) {
	f := newCommitFixture(t, fixedCaps{headroom: decimal.NewFromInt(100)}, CommitConfig{})
	ctx := context.Background()

	require.NoError(t, f.store.Create(ctx, domain.Lot{ID: "lot-2", PlayerName: "Other Player"}))

	_, rej, err := f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: 80, Confirmed: true})
	require.NoError(t, err)
	require.Nil(t, rej)

	// 80 committed on lot-1 plus 30 here would breach the 100 headroom.
	_, rej, err = f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-2", BidderID: "team-a", Amount: 30, Confirmed: true})
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Equal(t, domain.RejectCapExceeded, rej.Reason)

	// Raising their own high on lot-1 replaces the 80, it does not stack.
	_, rej, err = f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: 95, Confirmed: true})
	require.NoError(t, err)
	assert.Nil(t, rej)
}

func TestPlaceBid_OutsideWindow(t *testing.T) {
	f := newCommitFixture(t, fixedCaps{headroom: decimal.NewFromInt(300)}, CommitConfig{})
	ctx := context.Background()

	f.clk.Set(testStart.Add(-time.Minute))
	_, rej, err := f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: 3})
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Equal(t, domain.RejectNotActive, rej.Reason)

	f.clk.Set(testStart.Add(49 * time.Hour))
	_, rej, err = f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: 3})
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Equal(t, domain.RejectNotActive, rej.Reason)
}

func TestPlaceBid_AntiSnipeExtendsWindow(t *testing.T) {
	f := newCommitFixture(t, fixedCaps{headroom: decimal.NewFromInt(300)}, CommitConfig{})
	ctx := context.Background()

	// A bid an hour before the nominal close pushes the end out 24 hours.
	f.clk.Set(testStart.Add(47 * time.Hour))
	_, rej, err := f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: 3})
	require.NoError(t, err)
	require.Nil(t, rej)

	f.clk.Advance(20 * time.Hour)
	_, rej, err = f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-b", Amount: 4})
	require.NoError(t, err)
	assert.Nil(t, rej)
}

func TestPlaceBid_AuditLogFailureDoesNotUndoBid(t *testing.T) {
	f := newCommitFixture(t, fixedCaps{headroom: decimal.NewFromInt(300)}, CommitConfig{})
	ctx := context.Background()

	svc := NewCommitService(
		f.store,
		memory.Lots{Store: f.store},
		failingBidLog{},
		directory.New([]directory.Member{{ID: "team-a"}}, fixedCaps{headroom: decimal.NewFromInt(300)}),
		fixedCaps{headroom: decimal.NewFromInt(300)},
		nil,
		nil,
		f.clk,
		CommitConfig{CommitTimeout: time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	bid, rej, err := svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: 3})

	require.NoError(t, err)
	require.Nil(t, rej)

	lot, err := f.store.GetLot(ctx, "lot-1")
	require.NoError(t, err)
	require.Len(t, lot.Bids, 1)
	assert.Equal(t, bid.ID, lot.Bids[0].ID)
}

func TestResetLot(t *testing.T) {
	f := newCommitFixture(t, fixedCaps{headroom: decimal.NewFromInt(300)}, CommitConfig{})
	ctx := context.Background()

	for _, amount := range []float64{2, 3, 4} {
		_, rej, err := f.svc.PlaceBid(ctx, ProposedBid{LotID: "lot-1", BidderID: "team-a", Amount: amount})
		require.NoError(t, err)
		require.Nil(t, rej)
	}

	removed, err := f.svc.ResetLot(ctx, "lot-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	lot, err := f.store.GetLot(ctx, "lot-1")
	require.NoError(t, err)
	assert.Empty(t, lot.Bids)

	// The audit trail survives the reset.
	logged, err := f.store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logged, 3)
}

func TestResetLot_Unknown(t *testing.T) {
	f := newCommitFixture(t, fixedCaps{headroom: decimal.NewFromInt(300)}, CommitConfig{})

	_, err := f.svc.ResetLot(context.Background(), "lot-missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
