package seed

import (
	"errors"
	"fmt"
)

var ErrNoSources = errors.New("no sources")

// ExtractionError covers unreadable or unsupported files and failed page fetches.
type ExtractionError struct {
	SourceID string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type SplitError struct {
	SourceID string
	Err      error
}

func (e *SplitError) Error() string {
	return fmt.Sprintf("split failed: %v", e.Err)
}

func (e *SplitError) Unwrap() error { return e.Err }

// EmbeddingError records which chunk the provider failed on.
type EmbeddingError struct {
	SourceID string
	Index    int
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding chunk %d failed: %v", e.Index, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

type StoreError struct {
	SourceID string
	Hash     string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store upsert failed: %v", e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
