package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/lalder95/auctiond/internal/domain"
)

// multipartThreshold is the ledger size at which the archiver switches from a
// single PutObject to a multipart upload.
const multipartThreshold = 5 * 1024 * 1024

// ArchiveImpl implements domain.Archiver by serializing each ended lot's bid
// ledger to JSONL and uploading it to object storage. Lots whose archive
// object already exists are skipped, so repeated runs only upload new
// closures.
//
// The primary store is never modified here; archival is a copy, not a move.
type ArchiveImpl struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	logger *slog.Logger
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		reader: reader,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveLots uploads one JSONL object per lot under
// archive/<auctionID>/<lotID>.jsonl and returns how many lots were uploaded.
// A lot that fails to upload aborts the run; already-uploaded lots from the
// same run stay archived and are skipped on retry.
func (a *ArchiveImpl) ArchiveLots(ctx context.Context, auctionID string, lots []domain.Lot) (int64, error) {
	var archived int64
	for _, lot := range lots {
		path := archivePath(auctionID, lot.ID)

		exists, err := a.reader.Exists(ctx, path)
		if err != nil {
			return archived, fmt.Errorf("s3blob: archive check %s: %w", path, err)
		}
		if exists {
			continue
		}

		buf, err := marshalLedger(lot)
		if err != nil {
			return archived, fmt.Errorf("s3blob: archive marshal lot %s: %w", lot.ID, err)
		}

		if err := a.upload(ctx, path, buf); err != nil {
			return archived, fmt.Errorf("s3blob: archive upload %s: %w", path, err)
		}

		archived++
		a.logger.Info("archived lot ledger",
			slog.String("lot_id", lot.ID),
			slog.String("path", path),
			slog.Int("bids", len(lot.Bids)),
		)
	}
	return archived, nil
}

// upload writes one serialized ledger. Ledgers past the multipart threshold
// go through the multipart uploader so a single oversized object cannot hit
// the PutObject size limit.
func (a *ArchiveImpl) upload(ctx context.Context, path string, buf []byte) error {
	if int64(len(buf)) >= multipartThreshold {
		return a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), multipartThreshold)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
}

// ListArchived returns metadata for every archived ledger object of the
// given auction, in storage listing order.
func (a *ArchiveImpl) ListArchived(ctx context.Context, auctionID string) ([]domain.BlobInfo, error) {
	prefix := fmt.Sprintf("archive/%s/", auctionID)
	infos, err := a.reader.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("s3blob: list archive %s: %w", prefix, err)
	}
	return infos, nil
}

// OpenLedger streams one lot's archived JSONL ledger. The caller closes the
// returned reader. Returns domain.ErrNotFound when the lot was never
// archived.
func (a *ArchiveImpl) OpenLedger(ctx context.Context, auctionID, lotID string) (io.ReadCloser, error) {
	return a.reader.Get(ctx, archivePath(auctionID, lotID))
}

// archivePath builds the object key for one lot's ledger.
//
//	archive/<auctionID>/<lotID>.jsonl
func archivePath(auctionID, lotID string) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", auctionID, lotID)
}

// ledgerHeader is the first JSONL line of an archive object, describing the
// lot the following bid lines belong to.
type ledgerHeader struct {
	LotID      string `json:"lot_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Position   string `json:"position"`
	BidCount   int    `json:"bid_count"`
}

// marshalLedger serializes a lot as newline-delimited JSON: one header line
// followed by one line per accepted bid in ledger order.
func marshalLedger(lot domain.Lot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	header := ledgerHeader{
		LotID:      lot.ID,
		PlayerID:   lot.PlayerID,
		PlayerName: lot.PlayerName,
		Position:   lot.Position,
		BidCount:   len(lot.Bids),
	}
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("jsonl encode header: %w", err)
	}

	for i, bid := range lot.Bids {
		if err := enc.Encode(bid); err != nil {
			return nil, fmt.Errorf("jsonl encode bid %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*ArchiveImpl)(nil)
