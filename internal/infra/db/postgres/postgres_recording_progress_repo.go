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

var _ repository.RecordingProgressRepository = (*recordingProgressRepo)(nil)

type recordingProgressRepo struct {
	pool *pgxpool.Pool
}

func NewRecordingProgressRepo(pool *pgxpool.Pool) *recordingProgressRepo {
	return &recordingProgressRepo{pool: pool}
}

func (r *recordingProgressRepo) Save(ctx context.Context, tx repository.Tx, p *model.RecordingProgress) error {
	const q = `
INSERT INTO recording_progress (
  id, student_id, recording_id, status, time_listened, total_duration, percentage, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (student_id, recording_id) DO UPDATE SET
  status=$4, time_listened=$5, total_duration=$6, percentage=$7, updated_at=$8;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.StudentID, p.RecordingID, p.Status, p.TimeListened, p.TotalDuration, p.Percentage, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save recording progress: %w", err)
	}
	return nil
}

func (r *recordingProgressRepo) FindByStudentAndRecording(ctx context.Context, tx repository.Tx, studentID, recordingID string) (*model.RecordingProgress, error) {
	const q = `
SELECT id, student_id, recording_id, status, time_listened, total_duration, percentage, updated_at
  FROM recording_progress
 WHERE student_id = $1 AND recording_id = $2;`
	var p model.RecordingProgress
	err := pickRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return row.Scan(&p.ID, &p.StudentID, &p.RecordingID, &p.Status,
			&p.TimeListened, &p.TotalDuration, &p.Percentage, &p.UpdatedAt)
	}, studentID, recordingID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *recordingProgressRepo) FindUpdatedSince(ctx context.Context, tx repository.Tx, studentID string, since time.Time) ([]*model.RecordingProgress, error) {
	const q = `
SELECT id, student_id, recording_id, status, time_listened, total_duration, percentage, updated_at
  FROM recording_progress
 WHERE student_id = $1 AND updated_at > $2
 ORDER BY updated_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, studentID, since)
	if err != nil {
		return nil, fmt.Errorf("query recording progress: %w", err)
	}
	defer rows.Close()
	var out []*model.RecordingProgress
	for rows.Next() {
		var p model.RecordingProgress
		if err := rows.Scan(&p.ID, &p.StudentID, &p.RecordingID, &p.Status,
			&p.TimeListened, &p.TotalDuration, &p.Percentage, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
