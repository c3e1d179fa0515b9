package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lalder95/auctiond/internal/clock"
	"github.com/lalder95/auctiond/internal/domain"
	"github.com/lalder95/auctiond/internal/schedule"
)

const (
	// BidsChannel carries accepted-bid events on the signal bus.
	BidsChannel = "bids"
	// LotsChannel carries lot lifecycle events (resets, closes).
	LotsChannel = "lots"
	// BidStream is the durable stream mirror of BidsChannel.
	BidStream = "stream:bids"

	lockRetryInterval = 50 * time.Millisecond
)

// CommitConfig holds the tunable commit parameters.
type CommitConfig struct {
	// Ceiling is the per-lot maximum bid amount, used when the auction
	// record does not carry its own.
	Ceiling int
	// JumpThreshold triggers the two-phase confirmation when a bid exceeds
	// the current high by at least this much.
	JumpThreshold int
	// CommitTimeout bounds how long a commit may wait for its lot's
	// exclusion before failing with a retryable error.
	CommitTimeout time.Duration
	// LockTTL is the expiry on the distributed lock, when one is configured.
	LockTTL time.Duration
}

// CommitService is the only component that mutates auction state. Every bid
// and every reset for a lot passes through its per-lot exclusion, so the
// validation decision is always made against the ledger's true latest entry
// rather than whatever the caller last saw.
type CommitService struct {
	auctions  domain.AuctionStore
	lots      domain.LotStore
	bidlog    domain.BidLogStore
	directory domain.ParticipantDirectory
	caps      domain.CapSource
	locks     domain.LockManager // optional, for multi-instance deployments
	bus       domain.SignalBus   // optional
	clk       clock.Clock
	cfg       CommitConfig
	logger    *slog.Logger

	mu      sync.Mutex
	lotSems map[string]chan struct{}
}

// NewCommitService creates a CommitService. locks and bus may be nil: without
// a LockManager the exclusion is process-local, and without a SignalBus no
// events are published.
func NewCommitService(
	auctions domain.AuctionStore,
	lots domain.LotStore,
	bidlog domain.BidLogStore,
	directory domain.ParticipantDirectory,
	caps domain.CapSource,
	locks domain.LockManager,
	bus domain.SignalBus,
	clk clock.Clock,
	cfg CommitConfig,
	logger *slog.Logger,
) *CommitService {
	return &CommitService{
		auctions:  auctions,
		lots:      lots,
		bidlog:    bidlog,
		directory: directory,
		caps:      caps,
		locks:     locks,
		bus:       bus,
		clk:       clk,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "commit")),
		lotSems:   make(map[string]chan struct{}),
	}
}

// acquireLot takes the process-local per-lot semaphore and, when a
// LockManager is configured, the matching distributed lock. It blocks until
// both are held or ctx expires, in which case it returns ErrLotBusy so the
// caller can retry rather than proceed on stale state.
func (s *CommitService) acquireLot(ctx context.Context, lotID string) (func(), error) {
	s.mu.Lock()
	sem, ok := s.lotSems[lotID]
	if !ok {
		sem = make(chan struct{}, 1)
		s.lotSems[lotID] = sem
	}
	s.mu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("commit: lot %s: %w", lotID, domain.ErrLotBusy)
	}

	release := func() { <-sem }

	if s.locks == nil {
		return release, nil
	}

	for {
		unlock, err := s.locks.Acquire(ctx, "lot:"+lotID, s.cfg.LockTTL)
		if err == nil {
			return func() {
				unlock()
				release()
			}, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			release()
			return nil, fmt.Errorf("commit: acquire lot lock %s: %w", lotID, err)
		}

		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			release()
			return nil, fmt.Errorf("commit: lot %s: %w", lotID, domain.ErrLotBusy)
		case <-timer.C:
		}
	}
}

// PlaceBid validates and appends a bid as one indivisible operation. On
// acceptance it returns the new ledger entry; on refusal it returns the
// structured rejection (and a nil error). A non-nil error means the commit
// could not be decided at all: lock timeout, unreachable collaborator, or a
// storage failure.
func (s *CommitService) PlaceBid(ctx context.Context, p ProposedBid) (domain.Bid, *domain.BidRejection, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommitTimeout)
	defer cancel()

	release, err := s.acquireLot(ctx, p.LotID)
	if err != nil {
		return domain.Bid{}, nil, err
	}
	defer release()

	a, err := s.auctions.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Bid{}, nil, domain.ErrNoAuction
		}
		return domain.Bid{}, nil, fmt.Errorf("commit: load auction: %w", err)
	}

	// Fresh read inside the exclusion: any number of other commits may have
	// landed since the caller composed this bid.
	lot, err := s.lots.Get(ctx, p.LotID)
	if err != nil {
		return domain.Bid{}, nil, fmt.Errorf("commit: load lot %s: %w", p.LotID, err)
	}

	now := s.clk.Now()
	sched := schedule.Calc(schedule.Params{
		AuctionStart: a.Start,
		StartDelay:   lot.StartDelay,
		Nomination:   lot.Nomination(a.NominationDuration),
	}, lot.Bids)

	ceiling := a.MaxBid
	if ceiling <= 0 {
		ceiling = s.cfg.Ceiling
	}

	vc := ValidationContext{
		Status:  schedule.Status(now, sched),
		Ceiling: ceiling,
	}
	if high, ok := lot.CurrentHigh(); ok {
		h := high
		vc.CurrentHigh = &h
	}

	participant, err := s.directory.Participant(ctx, p.BidderID)
	switch {
	case err == nil:
		vc.Eligible = true
	case errors.Is(err, domain.ErrNotFound):
		vc.Eligible = false
	default:
		// Refuse to accept bids with unknown eligibility rather than guess.
		return domain.Bid{}, nil, fmt.Errorf("commit: participant directory: %w: %w", domain.ErrCollaboratorDown, err)
	}

	if vc.Eligible {
		headroom, err := s.caps.Headroom(ctx, participant.ID)
		if err != nil {
			return domain.Bid{}, nil, fmt.Errorf("commit: cap source: %w: %w", domain.ErrCollaboratorDown, err)
		}
		vc.Headroom = headroom

		allLots, err := s.lots.List(ctx)
		if err != nil {
			return domain.Bid{}, nil, fmt.Errorf("commit: list lots: %w", err)
		}
		vc.Committed = CommittedSpendExcluding(allLots, p.BidderID, p.LotID)
	} else {
		vc.Headroom = decimal.Zero
		vc.Committed = decimal.Zero
	}

	if rej := Validate(p, vc); rej != nil {
		return domain.Bid{}, rej, nil
	}

	// Two-phase confirmation for large jumps over the current high. This is
	// a boundary protocol, not a validity rule: the resubmission with the
	// confirmed flag goes through the full validation again.
	amount := int(p.Amount)
	high := 0
	if vc.CurrentHigh != nil {
		high = vc.CurrentHigh.Amount
	}
	if s.cfg.JumpThreshold > 0 && amount-high >= s.cfg.JumpThreshold && !p.Confirmed {
		return domain.Bid{}, &domain.BidRejection{
			Reason: domain.RejectConfirmRequired,
			Message: fmt.Sprintf("bid is $%d above the current high of $%d; resubmit with confirmed to place it",
				amount-high, high),
			CurrentHigh: vc.CurrentHigh,
		}, nil
	}

	bid := domain.Bid{
		ID:          uuid.NewString(),
		LotID:       lot.ID,
		BidderID:    participant.ID,
		Amount:      amount,
		SubmittedAt: now,
	}

	if err := s.lots.AppendBid(ctx, lot.ID, bid); err != nil {
		return domain.Bid{}, nil, fmt.Errorf("commit: append bid: %w", err)
	}

	// The bid log is the audit trail; a write failure there must not undo an
	// accepted bid, so it is logged and the commit stands.
	if err := s.bidlog.Append(ctx, bid); err != nil {
		s.logger.WarnContext(ctx, "bid log append failed",
			slog.String("bid_id", bid.ID),
			slog.String("error", err.Error()),
		)
	}

	s.publish(ctx, BidsChannel, map[string]any{
		"event":     "bid_accepted",
		"lot_id":    bid.LotID,
		"player":    lot.PlayerName,
		"bidder_id": bid.BidderID,
		"amount":    bid.Amount,
		"at":        bid.SubmittedAt,
	})

	s.logger.InfoContext(ctx, "bid accepted",
		slog.String("lot_id", bid.LotID),
		slog.String("bidder_id", bid.BidderID),
		slog.Int("amount", bid.Amount),
	)

	return bid, nil, nil
}

// ResetLot clears a lot's entire bid ledger, restoring its pre-bid schedule.
// Authorization is the caller's responsibility; the reset itself runs under
// the same per-lot exclusion as commits so it can never interleave with an
// in-flight bid on the same lot. The append-only bid log is not touched.
func (s *CommitService) ResetLot(ctx context.Context, lotID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommitTimeout)
	defer cancel()

	release, err := s.acquireLot(ctx, lotID)
	if err != nil {
		return 0, err
	}
	defer release()

	lot, err := s.lots.Get(ctx, lotID)
	if err != nil {
		return 0, fmt.Errorf("commit: load lot %s: %w", lotID, err)
	}

	removed, err := s.lots.ClearBids(ctx, lot.ID)
	if err != nil {
		return 0, fmt.Errorf("commit: clear bids %s: %w", lotID, err)
	}

	s.publish(ctx, LotsChannel, map[string]any{
		"event":        "lot_reset",
		"lot_id":       lot.ID,
		"player":       lot.PlayerName,
		"bids_removed": removed,
	})

	s.logger.InfoContext(ctx, "lot reset",
		slog.String("lot_id", lot.ID),
		slog.Int64("bids_removed", removed),
	)

	return removed, nil
}

// publish sends an event to the pub/sub channel and mirrors bid events onto
// the durable stream. Publish failures are logged, never fatal: the ledger is
// the source of truth and pollers will observe the change regardless.
func (s *CommitService) publish(ctx context.Context, channel string, event map[string]any) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
	if channel == BidsChannel {
		if err := s.bus.StreamAppend(ctx, BidStream, payload); err != nil {
			s.logger.WarnContext(ctx, "event stream append failed",
				slog.String("stream", BidStream),
				slog.String("error", err.Error()),
			)
		}
	}
}
