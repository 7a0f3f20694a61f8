package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/ports/repository"
)

// Thin wrappers so repos don't repeat the executor dance on every call.

func execSQL(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, sql string, args ...any) (pgconn.CommandTag, error) {
	ex, err := getExecutor(pool, tx)
	if err != nil {
		return nil, err
	}
	return ex.Exec(ctx, sql, args...)
}

func queryRows(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, sql string, args ...any) (pgx.Rows, error) {
	ex, err := getExecutor(pool, tx)
	if err != nil {
		return nil, err
	}
	return ex.Query(ctx, sql, args...)
}

// pickRow runs a single-row query and maps pgx.ErrNoRows to domain.ErrNotFound
// through the scan callback.
func pickRow(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, sql string, scan func(pgx.Row) error, args ...any) error {
	ex, err := getExecutor(pool, tx)
	if err != nil {
		return err
	}
	if err := scan(ex.QueryRow(ctx, sql, args...)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}
