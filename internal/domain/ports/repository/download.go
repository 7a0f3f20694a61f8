package repository

import (
	"context"
	"time"

	"gramothi-backend/internal/domain/model"
)

type BundleDownloadRepository interface {
	Save(ctx context.Context, tx Tx, d *model.BundleDownload) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.BundleDownload, error)
	FindByBundleAndRequester(ctx context.Context, tx Tx, bundleID, requesterID string) (*model.BundleDownload, error)
	FindByStatus(ctx context.Context, tx Tx, status model.DownloadStatus) ([]*model.BundleDownload, error)
	// FindOlderThan returns completed downloads whose last update precedes
	// cutoff; the retention sweep removes the record and the extracted
	// directory together.
	FindOlderThan(ctx context.Context, tx Tx, cutoff time.Time) ([]*model.BundleDownload, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
