package seed

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"ragseed/internal/middleware"
)

// SourceRunner is the per-source unit the coordinator drives.
type SourceRunner interface {
	Run(ctx context.Context, src Source, sink Sink) Outcome
}

// Coordinator runs a batch of sources strictly one after another. A failing
// source never stops the batch.
type Coordinator struct {
	runner SourceRunner
	logger *slog.Logger
}

func NewCoordinator(runner SourceRunner, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{runner: runner, logger: logger}
}

// Run returns one Outcome per input source, in input order, and emits
// allDone exactly once after the last source.
func (c *Coordinator) Run(ctx context.Context, sources []Source, sink Sink) []Outcome {
	if sink == nil {
		sink = Discard
	}
	if middleware.GetBatchID(ctx) == "" {
		ctx = middleware.WithBatchID(ctx, ulid.Make().String())
	}
	c.logger.InfoContext(ctx, "seed batch started", "sources", len(sources))

	outcomes := make([]Outcome, 0, len(sources))
	failed := 0
	for _, src := range sources {
		out := c.runner.Run(ctx, src, sink)
		if !out.OK {
			failed++
		}
		outcomes = append(outcomes, out)
	}

	sink.Send(Event{Type: EventAllDone})
	c.logger.InfoContext(ctx, "seed batch finished", "ok", len(outcomes)-failed, "failed", failed)
	return outcomes
}

// Stream runs the batch in the background. Events arrive on the returned
// sink until allDone, after which its channel is closed; the outcomes are
// delivered once on the second return value.
func (c *Coordinator) Stream(ctx context.Context, sources []Source, buffer int) (*ChanSink, <-chan []Outcome) {
	sink := NewChanSink(buffer)
	done := make(chan []Outcome, 1)
	go func() {
		defer sink.close()
		done <- c.Run(ctx, sources, sink)
	}()
	return sink, done
}
