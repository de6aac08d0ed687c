package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// SnapshotArchiver persists the market lists a scan worked from.
type SnapshotArchiver interface {
	// Archive returns the object key the snapshot was written to.
	Archive(ctx context.Context, snap MarketSnapshot) (string, error)
}
