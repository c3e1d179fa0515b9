package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lalder95/auctiond/internal/clock"
	"github.com/lalder95/auctiond/internal/domain"
	"github.com/lalder95/auctiond/internal/schedule"
)

// Engine is the read side of the auction. Every view it returns is derived on
// the spot from committed state plus the clock; nothing is cached here, so
// repeated reads without an intervening commit are identical and two
// simultaneous readers always agree.
type Engine struct {
	auctions  domain.AuctionStore
	lots      domain.LotStore
	bidlog    domain.BidLogStore
	directory domain.ParticipantDirectory
	caps      domain.CapSource
	clk       clock.Clock
	logger    *slog.Logger
}

// NewEngine creates the read-side engine.
func NewEngine(
	auctions domain.AuctionStore,
	lots domain.LotStore,
	bidlog domain.BidLogStore,
	directory domain.ParticipantDirectory,
	caps domain.CapSource,
	clk clock.Clock,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		auctions:  auctions,
		lots:      lots,
		bidlog:    bidlog,
		directory: directory,
		caps:      caps,
		clk:       clk,
		logger:    logger.With(slog.String("component", "engine")),
	}
}

// LotView is one lot with its derived fields, ready for display.
type LotView struct {
	ID          string           `json:"id"`
	PlayerID    string           `json:"player_id"`
	PlayerName  string           `json:"player_name"`
	Position    string           `json:"position"`
	Start       time.Time        `json:"start"`
	End         time.Time        `json:"end"`
	Status      domain.LotStatus `json:"status"`
	CurrentHigh *domain.Bid      `json:"current_high,omitempty"`
	BidCount    int              `json:"bid_count"`
	StartsInSec int64            `json:"starts_in_sec,omitempty"`
	EndsInSec   int64            `json:"ends_in_sec,omitempty"`
}

// CapStanding reports one participant's committed spend against their
// externally supplied headroom. Headroom is omitted when the cap source is
// unreachable; the committed figure is always available since it derives
// purely from the ledger.
type CapStanding struct {
	ParticipantID string           `json:"participant_id"`
	DisplayName   string           `json:"display_name"`
	Committed     decimal.Decimal  `json:"committed"`
	Headroom      *decimal.Decimal `json:"headroom,omitempty"`
	Remaining     *decimal.Decimal `json:"remaining,omitempty"`
}

// Snapshot is the full read surface: the auction, every lot with derived
// fields, and per-participant cap standings.
type Snapshot struct {
	AuctionID   string        `json:"auction_id"`
	AuctionName string        `json:"auction_name"`
	Start       time.Time     `json:"start"`
	Now         time.Time     `json:"now"`
	Lots        []LotView     `json:"lots"`
	Upcoming    int           `json:"upcoming"`
	Active      int           `json:"active"`
	Ended       int           `json:"ended"`
	Standings   []CapStanding `json:"standings"`
}

// Snapshot assembles the full auction view at the current instant.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	a, err := e.auctions.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Snapshot{}, domain.ErrNoAuction
		}
		return Snapshot{}, fmt.Errorf("engine: load auction: %w", err)
	}

	lots, err := e.lots.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("engine: list lots: %w", err)
	}

	now := e.clk.Now()
	snap := Snapshot{
		AuctionID:   a.ID,
		AuctionName: a.Name,
		Start:       a.Start,
		Now:         now,
		Lots:        make([]LotView, 0, len(lots)),
	}

	for _, lot := range lots {
		view := e.view(a, lot, now)
		switch view.Status {
		case domain.LotStatusUpcoming:
			snap.Upcoming++
		case domain.LotStatusActive:
			snap.Active++
		default:
			snap.Ended++
		}
		snap.Lots = append(snap.Lots, view)
	}

	snap.Standings = e.standings(ctx, lots)
	return snap, nil
}

// Lot returns the derived view of a single lot.
func (e *Engine) Lot(ctx context.Context, id string) (LotView, error) {
	a, err := e.auctions.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return LotView{}, domain.ErrNoAuction
		}
		return LotView{}, fmt.Errorf("engine: load auction: %w", err)
	}
	lot, err := e.lots.Get(ctx, id)
	if err != nil {
		return LotView{}, fmt.Errorf("engine: load lot %s: %w", id, err)
	}
	return e.view(a, lot, e.clk.Now()), nil
}

// BidLog returns accepted bids across all lots, newest first.
func (e *Engine) BidLog(ctx context.Context, limit int) ([]domain.Bid, error) {
	bids, err := e.bidlog.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("engine: bid log: %w", err)
	}
	return bids, nil
}

// CapReport returns the per-participant standings on their own.
func (e *Engine) CapReport(ctx context.Context) ([]CapStanding, error) {
	lots, err := e.lots.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: list lots: %w", err)
	}
	return e.standings(ctx, lots), nil
}

// EndedLots returns all lots whose final end has passed, for archival.
func (e *Engine) EndedLots(ctx context.Context) (string, []domain.Lot, error) {
	a, err := e.auctions.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrNoAuction
		}
		return "", nil, fmt.Errorf("engine: load auction: %w", err)
	}
	lots, err := e.lots.List(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("engine: list lots: %w", err)
	}

	now := e.clk.Now()
	var ended []domain.Lot
	for _, lot := range lots {
		sched := schedule.Calc(schedule.Params{
			AuctionStart: a.Start,
			StartDelay:   lot.StartDelay,
			Nomination:   lot.Nomination(a.NominationDuration),
		}, lot.Bids)
		if schedule.Status(now, sched) == domain.LotStatusEnded {
			ended = append(ended, lot)
		}
	}
	return a.ID, ended, nil
}

func (e *Engine) view(a domain.Auction, lot domain.Lot, now time.Time) LotView {
	sched := schedule.Calc(schedule.Params{
		AuctionStart: a.Start,
		StartDelay:   lot.StartDelay,
		Nomination:   lot.Nomination(a.NominationDuration),
	}, lot.Bids)
	status := schedule.Status(now, sched)

	view := LotView{
		ID:         lot.ID,
		PlayerID:   lot.PlayerID,
		PlayerName: lot.PlayerName,
		Position:   lot.Position,
		Start:      sched.Start,
		End:        sched.End,
		Status:     status,
		BidCount:   len(lot.Bids),
	}
	if high, ok := lot.CurrentHigh(); ok {
		h := high
		view.CurrentHigh = &h
	}
	switch status {
	case domain.LotStatusUpcoming:
		view.StartsInSec = int64(sched.Start.Sub(now).Seconds())
	case domain.LotStatusActive:
		view.EndsInSec = int64(sched.End.Sub(now).Seconds())
	}
	return view
}

// standings merges ledger-derived committed spend with best-effort headroom
// from the external cap source. Collaborator failures degrade the view, they
// never fail the read.
func (e *Engine) standings(ctx context.Context, lots []domain.Lot) []CapStanding {
	spend := SpendByParticipant(lots)

	participants, err := e.directory.List(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "participant directory unavailable, reporting spenders only",
			slog.String("error", err.Error()),
		)
		standings := make([]CapStanding, 0, len(spend))
		for id, committed := range spend {
			standings = append(standings, CapStanding{
				ParticipantID: id,
				DisplayName:   id,
				Committed:     committed,
			})
		}
		sort.Slice(standings, func(i, j int) bool {
			return standings[i].ParticipantID < standings[j].ParticipantID
		})
		return standings
	}

	standings := make([]CapStanding, 0, len(participants))
	for _, p := range participants {
		committed, ok := spend[p.ID]
		if !ok {
			committed = decimal.Zero
		}
		st := CapStanding{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Committed:     committed,
		}
		if headroom, err := e.caps.Headroom(ctx, p.ID); err == nil {
			remaining := headroom.Sub(committed)
			st.Headroom = &headroom
			st.Remaining = &remaining
		}
		standings = append(standings, st)
	}
	sort.Slice(standings, func(i, j int) bool {
		return standings[i].DisplayName < standings[j].DisplayName
	})
	return standings
}
