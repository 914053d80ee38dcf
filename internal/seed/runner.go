package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Runner seeds a single source end to end: extract, split, then embed and
// upsert each chunk in order. Every invocation is one attempt; failures are
// recorded on the source and in the audit log, never retried here.
type Runner struct {
	extractor    Extractor
	splitter     Splitter
	embedder     Embedder
	store        ContentStore
	sources      SourceUpdater
	logs         LogWriter
	skipExisting bool
	now          func() time.Time
	logger       *slog.Logger
}

type RunnerOption func(*Runner)

// WithSkipExisting checks the store before embedding and skips chunks whose
// hash is already present. Skipped chunks still count towards progress and
// the source's chunk count.
func WithSkipExisting(skip bool) RunnerOption {
	return func(r *Runner) {
		r.skipExisting = skip
	}
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRunner(e Extractor, sp Splitter, em Embedder, st ContentStore, su SourceUpdater, lw LogWriter, opts ...RunnerOption) *Runner {
	r := &Runner{
		extractor: e,
		splitter:  sp,
		embedder:  em,
		store:     st,
		sources:   su,
		logs:      lw,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run never returns an error: every failure becomes a failed Outcome.
func (r *Runner) Run(ctx context.Context, src Source, sink Sink) Outcome {
	if sink == nil {
		sink = Discard
	}
	started := r.now()
	tokens := 0

	sink.Send(Event{Type: EventStart, ID: src.ID})
	r.logger.InfoContext(ctx, "seeding source", "source_id", src.ID, "kind", src.Kind, "path", src.Location)

	chunks, err := r.seed(ctx, src, sink, &tokens)
	if err == nil {
		err = r.complete(ctx, src, chunks, tokens, started)
	}
	if err != nil {
		return r.fail(ctx, src, sink, err, tokens, started)
	}

	sink.Send(Event{Type: EventDone, ID: src.ID})
	r.logger.InfoContext(ctx, "source seeded", "source_id", src.ID, "chunks", chunks, "tokens", tokens, "duration", r.now().Sub(started))
	return Outcome{OK: true, ID: src.ID, Chunks: chunks}
}

func (r *Runner) seed(ctx context.Context, src Source, sink Sink, tokens *int) (int, error) {
	content, name, err := r.extractor.Extract(ctx, src)
	if err != nil {
		var xe *ExtractionError
		if !errors.As(err, &xe) {
			err = &ExtractionError{SourceID: src.ID, Err: err}
		}
		return 0, err
	}

	chunks, err := r.splitter.Split(content)
	if err != nil {
		return 0, &SplitError{SourceID: src.ID, Err: err}
	}
	total := len(chunks)
	if total == 0 {
		r.logger.InfoContext(ctx, "source produced no chunks", "source_id", src.ID)
		return 0, nil
	}

	for i, c := range chunks {
		if r.skipExisting {
			exists, err := r.store.Exists(ctx, c.Hash)
			if err != nil {
				return 0, &StoreError{SourceID: src.ID, Hash: c.Hash, Err: err}
			}
			if exists {
				sendProgress(sink, src.ID, i+1, total)
				continue
			}
		}

		vec, cost, err := r.embedder.Embed(ctx, c.Text)
		if err != nil {
			return 0, &EmbeddingError{SourceID: src.ID, Index: i, Err: err}
		}
		*tokens += cost

		if err := r.store.Upsert(ctx, c.Hash, c.Text, vec, name); err != nil {
			return 0, &StoreError{SourceID: src.ID, Hash: c.Hash, Err: err}
		}
		sendProgress(sink, src.ID, i+1, total)
	}
	return total, nil
}

func (r *Runner) complete(ctx context.Context, src Source, chunks, tokens int, started time.Time) error {
	at := r.now()
	if err := r.sources.MarkSeeded(ctx, src.ID, chunks, at); err != nil {
		return fmt.Errorf("update source status: %w", err)
	}
	entry := &LogEntry{
		SourceID:   src.ID,
		Kind:       src.Kind,
		Success:    true,
		ChunkCount: chunks,
		TokensUsed: tokens,
		DurationMs: at.Sub(started).Milliseconds(),
	}
	if err := r.logs.Append(ctx, entry); err != nil {
		return fmt.Errorf("append seed log: %w", err)
	}
	return nil
}

// fail writes the terminal error state. Its own write failures are logged
// only, so the batch always gets an Outcome back.
func (r *Runner) fail(ctx context.Context, src Source, sink Sink, cause error, tokens int, started time.Time) Outcome {
	msg := cause.Error()
	sink.Send(Event{Type: EventError, ID: src.ID, Message: msg})
	r.logger.ErrorContext(ctx, "seeding failed", "source_id", src.ID, "error", cause)

	// Committed chunks are kept; the failure must be recorded even when the
	// caller's context is already done.
	wctx := context.WithoutCancel(ctx)
	at := r.now()
	if err := r.sources.MarkFailed(wctx, src.ID, msg, at); err != nil {
		r.logger.ErrorContext(ctx, "failed to mark source as failed", "source_id", src.ID, "error", err)
	}
	entry := &LogEntry{
		SourceID:   src.ID,
		Kind:       src.Kind,
		Success:    false,
		TokensUsed: tokens,
		DurationMs: at.Sub(started).Milliseconds(),
		Error:      msg,
	}
	if err := r.logs.Append(wctx, entry); err != nil {
		r.logger.ErrorContext(ctx, "failed to append seed log", "source_id", src.ID, "error", err)
	}
	return Outcome{OK: false, ID: src.ID, Error: msg}
}

func sendProgress(sink Sink, id string, done, total int) {
	pct := percent(done, total)
	sink.Send(Event{Type: EventProgress, ID: id, Pct: &pct})
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}
