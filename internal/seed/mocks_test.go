package seed_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"ragseed/internal/seed"
	"ragseed/internal/text"
)

type MockExtractor struct{ mock.Mock }

func (m *MockExtractor) Extract(ctx context.Context, src seed.Source) (string, string, error) {
	args := m.Called(ctx, src)
	return args.String(0), args.String(1), args.Error(2)
}

type MockSplitter struct{ mock.Mock }

func (m *MockSplitter) Split(content string) ([]text.Chunk, error) {
	args := m.Called(content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]text.Chunk), args.Error(1)
}

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) Embed(ctx context.Context, content string) ([]float32, int, error) {
	args := m.Called(ctx, content)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]float32), args.Int(1), args.Error(2)
}

type MockStore struct{ mock.Mock }

func (m *MockStore) Upsert(ctx context.Context, hash, content string, vector []float32, source string) error {
	args := m.Called(ctx, hash, content, vector, source)
	return args.Error(0)
}

func (m *MockStore) Exists(ctx context.Context, hash string) (bool, error) {
	args := m.Called(ctx, hash)
	return args.Bool(0), args.Error(1)
}

type MockUpdater struct{ mock.Mock }

func (m *MockUpdater) MarkSeeded(ctx context.Context, id string, chunks int, at time.Time) error {
	args := m.Called(ctx, id, chunks, at)
	return args.Error(0)
}

func (m *MockUpdater) MarkFailed(ctx context.Context, id, message string, at time.Time) error {
	args := m.Called(ctx, id, message, at)
	return args.Error(0)
}

type MockLogWriter struct{ mock.Mock }

func (m *MockLogWriter) Append(ctx context.Context, entry *seed.LogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// recorder collects events in order.
type recorder struct {
	mu     sync.Mutex
	events []seed.Event
}

func (r *recorder) Send(ev seed.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []seed.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]seed.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// memRegistry is an in-memory source registry and audit log.
type memRegistry struct {
	mu      sync.Mutex
	sources map[string]seed.Source
	logs    []seed.LogEntry
}

func newMemRegistry(sources ...seed.Source) *memRegistry {
	r := &memRegistry{sources: map[string]seed.Source{}}
	for _, s := range sources {
		r.sources[s.ID] = s
	}
	return r
}

func (r *memRegistry) MarkSeeded(_ context.Context, id string, chunks int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sources[id]
	s.Status = seed.StatusSeeded
	s.ChunkCount = chunks
	s.Error = ""
	s.UpdatedAt = at
	r.sources[id] = s
	return nil
}

func (r *memRegistry) MarkFailed(_ context.Context, id, message string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sources[id]
	s.Status = seed.StatusError
	s.Error = message
	s.UpdatedAt = at
	r.sources[id] = s
	return nil
}

func (r *memRegistry) Append(_ context.Context, e *seed.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *e)
	return nil
}

func (r *memRegistry) get(id string) seed.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sources[id]
}
