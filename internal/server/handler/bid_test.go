package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalder95/auctiond/internal/auction"
	"github.com/lalder95/auctiond/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubCommitter struct {
	bid domain.Bid
	rej *domain.BidRejection
	err error
}

func (s stubCommitter) PlaceBid(context.Context, auction.ProposedBid) (domain.Bid, *domain.BidRejection, error) {
	return s.bid, s.rej, s.err
}

func postBid(t *testing.T, h *BidHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/bids", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.PlaceBid(rec, req)
	return rec
}

const validBody = `{"lot_id":"lot-1","bidder_id":"team-a","amount":5}`

func TestPlaceBid_Created(t *testing.T) {
	h := NewBidHandler(stubCommitter{
		bid: domain.Bid{ID: "b1", LotID: "lot-1", BidderID: "team-a", Amount: 5},
	}, discard)

	rec := postBid(t, h, validBody)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var got domain.Bid
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "b1", got.ID)
	assert.Equal(t, 5, got.Amount)
}

func TestPlaceBid_BadRequest(t *testing.T) {
	h := NewBidHandler(stubCommitter{}, discard)

	assert.Equal(t, http.StatusBadRequest, postBid(t, h, "{not json").Code)
	assert.Equal(t, http.StatusBadRequest, postBid(t, h, `{"amount":5}`).Code)
}

func TestPlaceBid_RejectionStatusMapping(t *testing.T) {
	tests := []struct {
		reason domain.RejectReason
		want   int
	}{
		{domain.RejectNotActive, http.StatusUnprocessableEntity},
		{domain.RejectNotIntegral, http.StatusUnprocessableEntity},
		{domain.RejectTooLow, http.StatusUnprocessableEntity},
		{domain.RejectExceedsCeiling, http.StatusUnprocessableEntity},
		{domain.RejectCapExceeded, http.StatusUnprocessableEntity},
		{domain.RejectNotEligible, http.StatusUnprocessableEntity},
		// The two-phase confirmation is a conflict, not a validity failure.
		{domain.RejectConfirmRequired, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			high := domain.Bid{ID: "b0", Amount: 4}
			h := NewBidHandler(stubCommitter{
				rej: &domain.BidRejection{Reason: tt.reason, Message: "refused", CurrentHigh: &high},
			}, discard)

			rec := postBid(t, h, validBody)

			assert.Equal(t, tt.want, rec.Code)

			var got rejectionResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.reason, got.Reason)
			require.NotNil(t, got.CurrentHigh)
			assert.Equal(t, 4, got.CurrentHigh.Amount)
		})
	}
}

func TestPlaceBid_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no auction", domain.ErrNoAuction, http.StatusNotFound},
		{"lot not found", domain.ErrNotFound, http.StatusNotFound},
		{"lot busy", domain.ErrLotBusy, http.StatusServiceUnavailable},
		{"collaborator down", domain.ErrCollaboratorDown, http.StatusServiceUnavailable},
		{"storage failure", errors.New("pg down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBidHandler(stubCommitter{err: tt.err}, discard)

			rec := postBid(t, h, validBody)

			assert.Equal(t, tt.want, rec.Code)
			if errors.Is(tt.err, domain.ErrLotBusy) {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
		})
	}
}
