package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/repository"
)

var _ repository.LearningSessionRepository = (*learningSessionRepo)(nil)

type learningSessionRepo struct {
	pool *pgxpool.Pool
}

func NewLearningSessionRepo(pool *pgxpool.Pool) *learningSessionRepo {
	return &learningSessionRepo{pool: pool}
}

func (r *learningSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.LearningSession) error {
	const q = `
INSERT INTO learning_sessions (
  id, student_id, class_id, session_type, started_at, ended_at, minutes, activities, engagement
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.StudentID, s.ClassID, s.SessionType, s.StartedAt, s.EndedAt,
		s.Minutes, s.Activities, s.Engagement)
	if err != nil {
		return fmt.Errorf("save learning session: %w", err)
	}
	return nil
}
