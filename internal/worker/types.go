package worker

import (
	"context"

	"ragseed/internal/seed"
)

type Publisher interface {
	Publish(topic string, body []byte) error
}

type SourceSelector interface {
	Select(ctx context.Context, ids []string) ([]seed.Source, error)
}

type Batcher interface {
	Run(ctx context.Context, sources []seed.Source, sink seed.Sink) []seed.Outcome
}
