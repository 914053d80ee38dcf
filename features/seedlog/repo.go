package seedlog

import (
	"context"
	"database/sql"

	"ragseed/internal/seed"
)

// PostgresRepo is the append-only audit log. Rows are inserted by the seed
// runner and only ever read back by reporting.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, entry *seed.LogEntry) error {
	query := `INSERT INTO seed_logs (source_id, type, success, chunk_count, tokens_used, duration_ms, error) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		entry.SourceID, entry.Kind, entry.Success, entry.ChunkCount, entry.TokensUsed, entry.DurationMs, entry.Error,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *PostgresRepo) List(ctx context.Context, limit, offset int) ([]seed.LogEntry, error) {
	query := `SELECT id, source_id, type, success, chunk_count, tokens_used, duration_ms, error, created_at FROM seed_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []seed.LogEntry
	for rows.Next() {
		var e seed.LogEntry
		if err := rows.Scan(&e.ID, &e.SourceID, &e.Kind, &e.Success, &e.ChunkCount, &e.TokensUsed, &e.DurationMs, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM seed_logs`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
