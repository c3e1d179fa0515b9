package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Participant is a recognized league team that may bid. CapHeadroom is
// supplied by an external accounting source and is read-only here; the engine
// only computes committed spend for comparison against it.
type Participant struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	CapHeadroom decimal.Decimal `json:"cap_headroom"`
}

// ParticipantDirectory resolves bidder identities. Lookup of an unknown ID
// returns ErrNotFound; any other error means the collaborator is unreachable
// and bid writes must be refused.
type ParticipantDirectory interface {
	Participant(ctx context.Context, id string) (Participant, error)
	List(ctx context.Context) ([]Participant, error)
}

// CapSource supplies the externally computed spend ceiling per participant.
type CapSource interface {
	Headroom(ctx context.Context, participantID string) (decimal.Decimal, error)
}
