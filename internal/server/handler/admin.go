package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lalder95/auctiond/internal/domain"
)

// LotResetter clears a lot's bid ledger under the commit exclusion.
type LotResetter interface {
	ResetLot(ctx context.Context, lotID string) (int64, error)
}

// LedgerArchiver finds ended lots and copies their ledgers to blob storage.
type LedgerArchiver interface {
	EndedLots(ctx context.Context) (string, []domain.Lot, error)
}

// AdminHandler serves the authenticated admin endpoints.
type AdminHandler struct {
	commits  LotResetter
	reader   LedgerArchiver
	archiver domain.Archiver // nil when blob storage is not configured
	logger   *slog.Logger
}

// NewAdminHandler creates an AdminHandler. archiver may be nil, in which case
// the archive endpoint reports that storage is not configured.
func NewAdminHandler(commits LotResetter, reader LedgerArchiver, archiver domain.Archiver, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		commits:  commits,
		reader:   reader,
		archiver: archiver,
		logger:   logger,
	}
}

// ResetLot clears a lot's bids. The audit log keeps its entries.
// POST /api/admin/lots/{id}/reset
func (h *AdminHandler) ResetLot(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing lot id")
		return
	}

	removed, err := h.commits.ResetLot(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "lot not found")
		case errors.Is(err, domain.ErrLotBusy):
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "lot is busy, retry shortly")
		default:
			h.logger.ErrorContext(r.Context(), "handler: reset lot failed",
				slog.String("lot_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to reset lot")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "reset",
		"lot_id":       id,
		"bids_removed": removed,
	})
}

// Archive copies every ended lot's ledger to blob storage.
// POST /api/admin/archive
func (h *AdminHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeError(w, http.StatusServiceUnavailable, "blob storage not configured")
		return
	}

	auctionID, ended, err := h.reader.EndedLots(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoAuction) {
			writeError(w, http.StatusNotFound, "no auction configured")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: find ended lots failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to find ended lots")
		return
	}

	archived, err := h.archiver.ArchiveLots(r.Context(), auctionID, ended)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: archive failed",
			slog.Int64("archived", archived),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "archive failed partway")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "archived",
		"ended":    len(ended),
		"archived": archived,
	})
}

// archivedObject is one entry in the archive listing response.
type archivedObject struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ListArchive returns metadata for every ledger object already copied to
// blob storage, so an operator can verify an archive run.
// GET /api/admin/archive
func (h *AdminHandler) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeError(w, http.StatusServiceUnavailable, "blob storage not configured")
		return
	}

	auctionID, _, err := h.reader.EndedLots(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoAuction) {
			writeError(w, http.StatusNotFound, "no auction configured")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: resolve auction failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to resolve auction")
		return
	}

	infos, err := h.archiver.ListArchived(r.Context(), auctionID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list archive failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list archive")
		return
	}

	objects := make([]archivedObject, 0, len(infos))
	for _, info := range infos {
		objects = append(objects, archivedObject{
			Path:         info.Path,
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"auction_id": auctionID,
		"objects":    objects,
	})
}

// GetArchivedLedger streams one lot's archived JSONL ledger back from blob
// storage.
// GET /api/admin/archive/{id}
func (h *AdminHandler) GetArchivedLedger(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeError(w, http.StatusServiceUnavailable, "blob storage not configured")
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing lot id")
		return
	}

	auctionID, _, err := h.reader.EndedLots(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoAuction) {
			writeError(w, http.StatusNotFound, "no auction configured")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: resolve auction failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to resolve auction")
		return
	}

	ledger, err := h.archiver.OpenLedger(r.Context(), auctionID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "lot not archived")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: open archived ledger failed",
			slog.String("lot_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to open archived ledger")
		return
	}
	defer ledger.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, ledger); err != nil {
		h.logger.WarnContext(r.Context(), "handler: stream archived ledger interrupted",
			slog.String("lot_id", id),
			slog.String("error", err.Error()),
		)
	}
}
