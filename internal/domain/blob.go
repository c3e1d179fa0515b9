package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver copies ended lots' bid ledgers to cold storage. Lots whose archive
// object already exists are skipped, so the operation is safe to repeat.
// ListArchived and OpenLedger read the archive back for verification.
type Archiver interface {
	ArchiveLots(ctx context.Context, auctionID string, lots []Lot) (int64, error)
	ListArchived(ctx context.Context, auctionID string) ([]BlobInfo, error)
	OpenLedger(ctx context.Context, auctionID, lotID string) (io.ReadCloser, error)
}
