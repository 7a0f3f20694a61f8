package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/repository"
)

var _ repository.BundleDownloadRepository = (*downloadRepo)(nil)

type downloadRepo struct {
	pool *pgxpool.Pool
}

func NewDownloadRepo(pool *pgxpool.Pool) *downloadRepo {
	return &downloadRepo{pool: pool}
}

const downloadColumns = `
id, bundle_id, requester_id, status, downloaded_size, total_size,
offline_path, error, created_at, updated_at, completed_at`

func (r *downloadRepo) Save(ctx context.Context, tx repository.Tx, d *model.BundleDownload) error {
	const q = `
INSERT INTO bundle_downloads (
  id, bundle_id, requester_id, status, downloaded_size, total_size,
  offline_path, error, created_at, updated_at, completed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  status=$4, downloaded_size=$5, total_size=$6,
  offline_path=$7, error=$8, updated_at=$10, completed_at=$11;`

	_, err := execSQL(ctx, r.pool, tx, q,
		d.ID, d.BundleID, d.RequesterID, d.Status, d.DownloadedSize, d.TotalSize,
		d.OfflinePath, d.Error, d.CreatedAt, d.UpdatedAt, d.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save download: %w", err)
	}
	return nil
}

func (r *downloadRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.BundleDownload, error) {
	q := `SELECT ` + downloadColumns + ` FROM bundle_downloads WHERE id = $1;`
	var d model.BundleDownload
	err := pickRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return scanDownload(row, &d)
	}, id)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *downloadRepo) FindByBundleAndRequester(ctx context.Context, tx repository.Tx, bundleID, requesterID string) (*model.BundleDownload, error) {
	q := `SELECT ` + downloadColumns + `
  FROM bundle_downloads
 WHERE bundle_id = $1 AND requester_id = $2
 ORDER BY created_at DESC
 LIMIT 1;`
	var d model.BundleDownload
	err := pickRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return scanDownload(row, &d)
	}, bundleID, requesterID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *downloadRepo) FindByStatus(ctx context.Context, tx repository.Tx, status model.DownloadStatus) ([]*model.BundleDownload, error) {
	q := `SELECT ` + downloadColumns + ` FROM bundle_downloads WHERE status = $1 ORDER BY created_at ASC;`
	return r.queryMany(ctx, tx, q, status)
}

func (r *downloadRepo) FindOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]*model.BundleDownload, error) {
	q := `SELECT ` + downloadColumns + `
  FROM bundle_downloads
 WHERE status = 'completed' AND updated_at < $1
 ORDER BY updated_at ASC;`
	return r.queryMany(ctx, tx, q, cutoff)
}

func (r *downloadRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM bundle_downloads WHERE id = $1;`
	if _, err := execSQL(ctx, r.pool, tx, q, id); err != nil {
		return fmt.Errorf("delete download: %w", err)
	}
	return nil
}

func (r *downloadRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...any) ([]*model.BundleDownload, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query downloads: %w", err)
	}
	defer rows.Close()
	var out []*model.BundleDownload
	for rows.Next() {
		var d model.BundleDownload
		if err := scanDownload(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func scanDownload(row pgx.Row, d *model.BundleDownload) error {
	return row.Scan(
		&d.ID, &d.BundleID, &d.RequesterID, &d.Status, &d.DownloadedSize, &d.TotalSize,
		&d.OfflinePath, &d.Error, &d.CreatedAt, &d.UpdatedAt, &d.CompletedAt,
	)
}
