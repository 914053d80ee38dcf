package worker_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"ragseed/internal/seed"
)

// Mocks

type MockSelector struct{ mock.Mock }

func (m *MockSelector) Select(ctx context.Context, ids []string) ([]seed.Source, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seed.Source), args.Error(1)
}

type MockBatcher struct{ mock.Mock }

func (m *MockBatcher) Run(ctx context.Context, sources []seed.Source, sink seed.Sink) []seed.Outcome {
	args := m.Called(ctx, sources, sink)
	return args.Get(0).([]seed.Outcome)
}

type published struct {
	topic string
	body  []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, body: body})
	return nil
}
