package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// multipartThreshold is the snapshot size above which uploads switch to the
// multipart manager.
const multipartThreshold = 8 * 1024 * 1024

// SnapshotArchiver writes one JSON object per scan holding the market lists
// that scan matched against.
type SnapshotArchiver struct {
	writer domain.BlobWriter
}

// NewSnapshotArchiver creates a SnapshotArchiver on top of writer.
func NewSnapshotArchiver(writer domain.BlobWriter) *SnapshotArchiver {
	return &SnapshotArchiver{writer: writer}
}

// Archive uploads snap and returns the object key it was written to.
func (a *SnapshotArchiver) Archive(ctx context.Context, snap domain.MarketSnapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal snapshot %s: %w", snap.ScanID, err)
	}

	path := snapshotPath(snap)
	if len(data) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(data), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive snapshot %s: %w", snap.ScanID, err)
	}
	return path, nil
}

// snapshotPath lays snapshots out by UTC capture date:
// snapshots/YYYY/MM/DD/<scan-id>.json.
func snapshotPath(snap domain.MarketSnapshot) string {
	return fmt.Sprintf("snapshots/%s/%s.json", snap.CapturedAt.UTC().Format("2006/01/02"), snap.ScanID)
}

// Compile-time interface check.
var _ domain.SnapshotArchiver = (*SnapshotArchiver)(nil)
