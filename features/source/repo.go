package source

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"ragseed/internal/seed"
)

const columns = `id, type, path, original_name, status, chunk_count, error, created_at, updated_at`

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (seed.Source, error) {
	var s seed.Source
	err := row.Scan(&s.ID, &s.Kind, &s.Location, &s.OriginalName, &s.Status, &s.ChunkCount, &s.Error, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *PostgresRepo) Save(ctx context.Context, src *seed.Source) error {
	if src.Status == "" {
		src.Status = seed.StatusPending
	}
	query := `INSERT INTO sources (type, path, original_name, status) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, src.Kind, src.Location, src.OriginalName, src.Status).
		Scan(&src.ID, &src.CreatedAt, &src.UpdatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*seed.Source, error) {
	query := `SELECT ` + columns + ` FROM sources WHERE id = $1`
	s, err := scanSource(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepo) list(ctx context.Context, query string, args ...any) ([]seed.Source, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []seed.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *PostgresRepo) List(ctx context.Context) ([]seed.Source, error) {
	return r.list(ctx, `SELECT `+columns+` FROM sources ORDER BY created_at DESC`)
}

// ListByStatus returns oldest first so batches seed in registration order.
func (r *PostgresRepo) ListByStatus(ctx context.Context, status seed.Status) ([]seed.Source, error) {
	return r.list(ctx, `SELECT `+columns+` FROM sources WHERE status = $1 ORDER BY created_at ASC`, status)
}

func (r *PostgresRepo) ListByIDs(ctx context.Context, ids []string) ([]seed.Source, error) {
	return r.list(ctx, `SELECT `+columns+` FROM sources WHERE id = ANY($1::uuid[])`, pq.Array(ids))
}

func (r *PostgresRepo) MarkSeeded(ctx context.Context, id string, chunks int, at time.Time) error {
	query := `UPDATE sources SET status = $1, chunk_count = $2, error = '', updated_at = $3 WHERE id = $4`
	return r.exec(ctx, query, seed.StatusSeeded, chunks, at, id)
}

func (r *PostgresRepo) MarkFailed(ctx context.Context, id, message string, at time.Time) error {
	query := `UPDATE sources SET status = $1, error = $2, updated_at = $3 WHERE id = $4`
	return r.exec(ctx, query, seed.StatusError, message, at, id)
}

func (r *PostgresRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count)
	return count, err
}

func (r *PostgresRepo) CountByStatus(ctx context.Context, status seed.Status) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources WHERE status = $1`, status).Scan(&count)
	return count, err
}
