package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

/* ===================== CONNECT ===================== */

// OpenDB connects to Postgres, retrying for up to 30s while the database
// comes up.
func OpenDB(url string, maxConns int32, logger *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	var pool *pgxpool.Pool

	deadline := time.Now().Add(30 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				cancel()
				break
			}
			pool.Close()
		}
		cancel()

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("failed to connect DB after retries: %w", err)
		}
		resolveLogger(logger).Warn("database not ready, retrying", "error", err)
		time.Sleep(1 * time.Second)
	}

	return pool, nil
}

/* ===================== SQUIRREL HELPERS ===================== */

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func qExec(ctx context.Context, db querier, q sq.Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return db.Exec(ctx, sql, args...)
}

func qQuery(ctx context.Context, db querier, q sq.Sqlizer) (pgx.Rows, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return db.Query(ctx, sql, args...)
}

func qRow(ctx context.Context, db querier, q sq.Sqlizer) pgx.Row {
	sql, args, err := q.ToSql()
	if err != nil {
		return errRow{err}
	}
	return db.QueryRow(ctx, sql, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
