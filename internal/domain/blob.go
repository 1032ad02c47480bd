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
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver exports a closed market's trade history to cold storage and
// prunes the rows afterwards.
type Archiver interface {
	ArchiveMarket(ctx context.Context, marketID string) (int64, error)
}

// ArchivePrefix is the object-storage prefix under which one market's
// archive files live. Writers and readers share this layout.
func ArchivePrefix(marketID string) string {
	return "archive/markets/" + marketID + "/"
}

// ArchivePath is the object-storage key for one archive file. Kind is the
// record set being exported: "orders", "trades", or "claims".
func ArchivePath(marketID, kind string) string {
	return ArchivePrefix(marketID) + kind + ".jsonl"
}
