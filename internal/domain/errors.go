package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrLockHeld         = errors.New("lock already held")
	ErrLotBusy          = errors.New("lot commit lock not acquired in time")
	ErrCollaboratorDown = errors.New("collaborator unavailable")
	ErrNoAuction        = errors.New("no auction configured")
)

// RejectReason identifies why a proposed bid was not accepted. Every reason
// is deterministic and caller-correctable; concurrency losses surface as
// RejectTooLow against the fresh high rather than a distinct conflict type.
type RejectReason string

const (
	RejectNotActive       RejectReason = "not_active"
	RejectNotIntegral     RejectReason = "not_integral"
	RejectTooLow          RejectReason = "too_low"
	RejectExceedsCeiling  RejectReason = "exceeds_ceiling"
	RejectCapExceeded     RejectReason = "cap_exceeded"
	RejectNotEligible     RejectReason = "not_eligible"
	RejectConfirmRequired RejectReason = "confirm_required"
)

// BidRejection is the structured outcome of a refused bid. CurrentHigh always
// carries the authoritative ledger high at decision time so the caller can
// re-render and resubmit a valid amount.
type BidRejection struct {
	Reason      RejectReason `json:"reason"`
	Message     string       `json:"message"`
	CurrentHigh *Bid         `json:"current_high,omitempty"`
}

func (r *BidRejection) Error() string {
	return fmt.Sprintf("bid rejected (%s): %s", r.Reason, r.Message)
}
