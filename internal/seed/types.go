package seed

import (
	"context"
	"time"

	"ragseed/internal/text"
)

type Kind string

const (
	KindFile Kind = "file"
	KindURL  Kind = "url"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSeeded  Status = "seeded"
	StatusError   Status = "error"
)

// Source is a registered unit of content. Location is a path relative to the
// document root for file sources and an absolute URL for url sources.
type Source struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"type"`
	Location     string    `json:"path"`
	OriginalName string    `json:"original_name,omitempty"`
	Status       Status    `json:"status"`
	ChunkCount   int       `json:"chunk_count"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Record is the unit persisted in a content store, keyed by Hash.
type Record struct {
	Hash      string    `json:"hash"`
	Text      string    `json:"text"`
	Vector    []float32 `json:"vector"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// LogEntry is the append-only audit record of one runner invocation.
type LogEntry struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"source_id"`
	Kind       Kind      `json:"type"`
	Success    bool      `json:"success"`
	ChunkCount int       `json:"chunk_count"`
	TokensUsed int       `json:"tokens_used"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Outcome is the per-source result handed back to the coordinator's caller.
type Outcome struct {
	OK     bool   `json:"ok"`
	ID     string `json:"id"`
	Chunks int    `json:"chunks"`
	Error  string `json:"error,omitempty"`
}

type Extractor interface {
	Extract(ctx context.Context, src Source) (content string, displayName string, err error)
}

type Splitter interface {
	Split(content string) ([]text.Chunk, error)
}

type Embedder interface {
	Embed(ctx context.Context, content string) ([]float32, int, error)
}

// ContentStore must perform Upsert as an atomic insert-if-absent.
type ContentStore interface {
	Upsert(ctx context.Context, hash, content string, vector []float32, source string) error
	Exists(ctx context.Context, hash string) (bool, error)
}

type SourceUpdater interface {
	MarkSeeded(ctx context.Context, id string, chunks int, at time.Time) error
	MarkFailed(ctx context.Context, id, message string, at time.Time) error
}

type LogWriter interface {
	Append(ctx context.Context, entry *LogEntry) error
}
