package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lalder95/auctiond/internal/auction"
	"github.com/lalder95/auctiond/internal/domain"
)

// BidCommitter defines the write-side method the bid handler requires.
type BidCommitter interface {
	PlaceBid(ctx context.Context, p auction.ProposedBid) (domain.Bid, *domain.BidRejection, error)
}

// BidHandler serves the bid submission endpoint.
type BidHandler struct {
	commits BidCommitter
	logger  *slog.Logger
}

// NewBidHandler creates a BidHandler.
func NewBidHandler(commits BidCommitter, logger *slog.Logger) *BidHandler {
	return &BidHandler{
		commits: commits,
		logger:  logger,
	}
}

// placeBidRequest is the JSON body for bid submission. Amount is accepted as
// a JSON number so fractional submissions reach validation and are refused
// there with a structured reason instead of a decode error.
type placeBidRequest struct {
	LotID     string  `json:"lot_id"`
	BidderID  string  `json:"bidder_id"`
	Amount    float64 `json:"amount"`
	Confirmed bool    `json:"confirmed"`
}

// rejectionResponse is the structured refusal body. It always carries the
// authoritative current high so the caller can re-render and resubmit.
type rejectionResponse struct {
	Reason      domain.RejectReason `json:"reason"`
	Message     string              `json:"message"`
	CurrentHigh *domain.Bid         `json:"current_high,omitempty"`
}

// PlaceBid validates and commits a bid.
// POST /api/bids
func (h *BidHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.LotID == "" || req.BidderID == "" {
		writeError(w, http.StatusBadRequest, "lot_id and bidder_id are required")
		return
	}

	bid, rejection, err := h.commits.PlaceBid(r.Context(), auction.ProposedBid{
		LotID:     req.LotID,
		BidderID:  req.BidderID,
		Amount:    req.Amount,
		Confirmed: req.Confirmed,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoAuction):
			writeError(w, http.StatusNotFound, "no auction configured")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "lot not found")
		case errors.Is(err, domain.ErrLotBusy):
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "lot is busy, retry shortly")
		case errors.Is(err, domain.ErrCollaboratorDown):
			writeError(w, http.StatusServiceUnavailable, "league data source unavailable, bids are paused")
		default:
			h.logger.ErrorContext(r.Context(), "handler: place bid failed",
				slog.String("lot_id", req.LotID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to place bid")
		}
		return
	}

	if rejection != nil {
		status := http.StatusUnprocessableEntity
		if rejection.Reason == domain.RejectConfirmRequired {
			status = http.StatusConflict
		}
		writeJSON(w, status, rejectionResponse{
			Reason:      rejection.Reason,
			Message:     rejection.Message,
			CurrentHigh: rejection.CurrentHigh,
		})
		return
	}

	writeJSON(w, http.StatusCreated, bid)
}
