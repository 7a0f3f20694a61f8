package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/repository"
)

var _ repository.QuizResponseRepository = (*quizResponseRepo)(nil)

type quizResponseRepo struct {
	pool *pgxpool.Pool
}

func NewQuizResponseRepo(pool *pgxpool.Pool) *quizResponseRepo {
	return &quizResponseRepo{pool: pool}
}

func (r *quizResponseRepo) Save(ctx context.Context, tx repository.Tx, resp *model.QuizResponse) error {
	const q = `
INSERT INTO quiz_responses (id, quiz_id, student_id, answer, is_correct, points_earned, submitted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`

	_, err := execSQL(ctx, r.pool, tx, q,
		resp.ID, resp.QuizID, resp.StudentID, resp.Answer, resp.IsCorrect, resp.PointsEarned, resp.SubmittedAt)
	if err != nil {
		return fmt.Errorf("save quiz response: %w", err)
	}
	return nil
}

func (r *quizResponseRepo) FindByQuizAndStudent(ctx context.Context, tx repository.Tx, quizID, studentID string) (*model.QuizResponse, error) {
	const q = `
SELECT id, quiz_id, student_id, answer, is_correct, points_earned, submitted_at
  FROM quiz_responses
 WHERE quiz_id = $1 AND student_id = $2;`
	var resp model.QuizResponse
	err := pickRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return row.Scan(&resp.ID, &resp.QuizID, &resp.StudentID, &resp.Answer,
			&resp.IsCorrect, &resp.PointsEarned, &resp.SubmittedAt)
	}, quizID, studentID)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *quizResponseRepo) FindQuiz(ctx context.Context, tx repository.Tx, quizID string) (*model.Quiz, error) {
	const q = `SELECT id, class_id, correct_option, points FROM quizzes WHERE id = $1;`
	var quiz model.Quiz
	err := pickRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return row.Scan(&quiz.ID, &quiz.ClassID, &quiz.CorrectOption, &quiz.Points)
	}, quizID)
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}
