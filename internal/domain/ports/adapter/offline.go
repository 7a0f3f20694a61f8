package adapter

import (
	"context"

	"gramothi-backend/internal/domain/model"
)

// OfflineStoreAdapter owns on-device bundle layout: the staged archive copy
// and its extracted form. Keys are download ids, never raw paths, so the
// store controls where content lands.
type OfflineStoreAdapter interface {
	// Transfer copies the archive into the download area in fixed-size
	// chunks, reporting cumulative bytes after each chunk. A non-nil error
	// from onProgress aborts the copy.
	Transfer(ctx context.Context, downloadID, bundlePath string, onProgress func(written int64) error) (int64, error)
	// Extract unpacks the archive into the offline area and returns its root.
	Extract(downloadID, bundlePath string) (string, error)
	Content(downloadID string) (*model.OfflineContent, error)
	Remove(downloadID string) error
}
