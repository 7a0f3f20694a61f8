package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/repository"
)

// Ensure bundleRepo implements repository.LectureBundleRepository
var _ repository.LectureBundleRepository = (*bundleRepo)(nil)

type bundleRepo struct {
	pool *pgxpool.Pool
}

func NewBundleRepo(pool *pgxpool.Pool) *bundleRepo {
	return &bundleRepo{pool: pool}
}

const bundleColumns = `
id, class_id, title, owner_id, status, progress,
source_video_path, source_slides_path,
audio_path, slides_dir, timeline_path, archive_path, checksum,
archive_size, audio_duration, slide_count, compression_ratio,
error, created_at, updated_at, processed_at`

func (r *bundleRepo) Save(ctx context.Context, tx repository.Tx, b *model.LectureBundle) error {
	const q = `
INSERT INTO lecture_bundles (
  id, class_id, title, owner_id, status, progress,
  source_video_path, source_slides_path,
  audio_path, slides_dir, timeline_path, archive_path, checksum,
  archive_size, audio_duration, slide_count, compression_ratio,
  error, created_at, updated_at, processed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
ON CONFLICT (id) DO UPDATE SET
  status=$5, progress=$6,
  audio_path=$9, slides_dir=$10, timeline_path=$11, archive_path=$12, checksum=$13,
  archive_size=$14, audio_duration=$15, slide_count=$16, compression_ratio=$17,
  error=$18, updated_at=$20, processed_at=$21;`

	_, err := execSQL(ctx, r.pool, tx, q,
		b.ID, b.ClassID, b.Title, b.OwnerID, b.Status, b.Progress,
		b.SourceVideoPath, b.SourceSlidesPath,
		b.AudioPath, b.SlidesDir, b.TimelinePath, b.ArchivePath, b.Checksum,
		b.ArchiveSize, b.AudioDuration, b.SlideCount, b.CompressionRatio,
		b.Error, b.CreatedAt, b.UpdatedAt, b.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}
	return nil
}

func (r *bundleRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.LectureBundle, error) {
	q := `SELECT ` + bundleColumns + ` FROM lecture_bundles WHERE id = $1;`
	var b model.LectureBundle
	err := pickRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return scanBundle(row, &b)
	}, id)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bundleRepo) FindByClass(ctx context.Context, tx repository.Tx, classID string) ([]*model.LectureBundle, error) {
	q := `SELECT ` + bundleColumns + ` FROM lecture_bundles WHERE class_id = $1 ORDER BY created_at DESC;`
	return r.queryMany(ctx, tx, q, classID)
}

func (r *bundleRepo) FindByStatus(ctx context.Context, tx repository.Tx, status model.BundleStatus) ([]*model.LectureBundle, error) {
	q := `SELECT ` + bundleColumns + ` FROM lecture_bundles WHERE status = $1 ORDER BY created_at ASC;`
	return r.queryMany(ctx, tx, q, status)
}

func (r *bundleRepo) SaveTimeline(ctx context.Context, tx repository.Tx, bundleID string, entries []model.SlideTimelineEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	const q = `
INSERT INTO bundle_timelines (bundle_id, entries, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (bundle_id) DO UPDATE SET entries=$2, updated_at=now();`
	if _, err := execSQL(ctx, r.pool, tx, q, bundleID, raw); err != nil {
		return fmt.Errorf("save timeline: %w", err)
	}
	return nil
}

func (r *bundleRepo) FindTimeline(ctx context.Context, tx repository.Tx, bundleID string) ([]model.SlideTimelineEntry, error) {
	const q = `SELECT entries FROM bundle_timelines WHERE bundle_id = $1;`
	var raw []byte
	err := pickRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return row.Scan(&raw)
	}, bundleID)
	if err != nil {
		return nil, err
	}
	var entries []model.SlideTimelineEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal timeline: %w", err)
	}
	return entries, nil
}

func (r *bundleRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...any) ([]*model.LectureBundle, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query bundles: %w", err)
	}
	defer rows.Close()
	var out []*model.LectureBundle
	for rows.Next() {
		var b model.LectureBundle
		if err := scanBundle(rows, &b); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func scanBundle(row pgx.Row, b *model.LectureBundle) error {
	return row.Scan(
		&b.ID, &b.ClassID, &b.Title, &b.OwnerID, &b.Status, &b.Progress,
		&b.SourceVideoPath, &b.SourceSlidesPath,
		&b.AudioPath, &b.SlidesDir, &b.TimelinePath, &b.ArchivePath, &b.Checksum,
		&b.ArchiveSize, &b.AudioDuration, &b.SlideCount, &b.CompressionRatio,
		&b.Error, &b.CreatedAt, &b.UpdatedAt, &b.ProcessedAt,
	)
}
