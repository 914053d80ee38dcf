package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"
	"github.com/oklog/ulid/v2"

	"ragseed/internal/middleware"
)

// SeedConsumer runs one seeding batch per request message.
type SeedConsumer struct {
	sources SourceSelector
	batcher Batcher
	pub     Publisher
}

func NewSeedConsumer(sources SourceSelector, batcher Batcher, pub Publisher) *SeedConsumer {
	return &SeedConsumer{
		sources: sources,
		batcher: batcher,
		pub:     pub,
	}
}

func (h *SeedConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var req SeedRequest
	if err := json.Unmarshal(m.Body, &req); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if req.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, req.CorrelationID)
	}
	batchID := ulid.Make().String()
	ctx = middleware.WithBatchID(ctx, batchID)

	sources, err := h.sources.Select(ctx, req.SourceIDs)
	if err != nil {
		slog.ErrorContext(ctx, "failed to select sources", "error", err)
		return err // Retry
	}
	if len(sources) == 0 {
		slog.InfoContext(ctx, "seed request matched no sources", "requested", len(req.SourceIDs))
		return nil
	}

	// Failed sources are recorded by the runner; the message itself is never
	// requeued, resubmitting is up to the caller.
	outcomes := h.batcher.Run(ctx, sources, NewProgressPublisher(h.pub, batchID, req.CorrelationID))

	failed := 0
	for _, o := range outcomes {
		if !o.OK {
			failed++
		}
	}
	slog.InfoContext(ctx, "seed request processed", "sources", len(outcomes), "failed", failed)
	return nil
}
