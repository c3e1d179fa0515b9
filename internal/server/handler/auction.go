package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lalder95/auctiond/internal/auction"
	"github.com/lalder95/auctiond/internal/domain"
)

// AuctionReader defines the read-side methods the auction handler requires.
type AuctionReader interface {
	Snapshot(ctx context.Context) (auction.Snapshot, error)
	Lot(ctx context.Context, id string) (auction.LotView, error)
	BidLog(ctx context.Context, limit int) ([]domain.Bid, error)
	CapReport(ctx context.Context) ([]auction.CapStanding, error)
}

// AuctionHandler serves the read-only auction endpoints.
type AuctionHandler struct {
	engine AuctionReader
	logger *slog.Logger
}

// NewAuctionHandler creates an AuctionHandler.
func NewAuctionHandler(engine AuctionReader, logger *slog.Logger) *AuctionHandler {
	return &AuctionHandler{
		engine: engine,
		logger: logger,
	}
}

// GetAuction returns the full auction snapshot.
// GET /api/auction
func (h *AuctionHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoAuction) {
			writeError(w, http.StatusNotFound, "no auction configured")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: snapshot failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load auction")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetLot returns one lot's derived view.
// GET /api/auction/lots/{id}
func (h *AuctionHandler) GetLot(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing lot id")
		return
	}

	view, err := h.engine.Lot(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "lot not found")
			return
		}
		if errors.Is(err, domain.ErrNoAuction) {
			writeError(w, http.StatusNotFound, "no auction configured")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get lot failed",
			slog.String("lot_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load lot")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// bidLogResponse wraps the bid log response.
type bidLogResponse struct {
	Bids []domain.Bid `json:"bids"`
}

// GetBidLog returns accepted bids across all lots, newest first.
// GET /api/auction/bidlog?limit=50
func (h *AuctionHandler) GetBidLog(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 500)

	bids, err := h.engine.BidLog(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: bid log failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load bid log")
		return
	}
	if bids == nil {
		bids = []domain.Bid{}
	}
	writeJSON(w, http.StatusOK, bidLogResponse{Bids: bids})
}

// capsResponse wraps the cap report response.
type capsResponse struct {
	Standings []auction.CapStanding `json:"standings"`
}

// GetCaps returns per-participant committed spend and headroom.
// GET /api/auction/caps
func (h *AuctionHandler) GetCaps(w http.ResponseWriter, r *http.Request) {
	standings, err := h.engine.CapReport(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: cap report failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load cap report")
		return
	}
	if standings == nil {
		standings = []auction.CapStanding{}
	}
	writeJSON(w, http.StatusOK, capsResponse{Standings: standings})
}
