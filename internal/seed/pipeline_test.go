package seed_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	badgerstore "ragseed/internal/adapter/badger"
	"ragseed/internal/seed"
	"ragseed/internal/text"
)

// fixedExtractor returns canned text per source location.
type fixedExtractor map[string]string

func (f fixedExtractor) Extract(_ context.Context, src seed.Source) (string, string, error) {
	content, ok := f[src.Location]
	if !ok {
		return "", "", errors.New("no such file")
	}
	return content, src.Location, nil
}

// countingEmbedder returns a length-derived vector and fails on marked text.
type countingEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn string
}

func (e *countingEmbedder) Embed(_ context.Context, content string) ([]float32, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failOn != "" && strings.Contains(content, e.failOn) {
		return nil, 0, errors.New("provider unavailable")
	}
	return []float32{float32(len(content)), 1}, len(strings.Fields(content)), nil
}

type pipeline struct {
	store    *badgerstore.Store
	registry *memRegistry
	embedder *countingEmbedder
	coord    *seed.Coordinator
}

func newPipeline(t *testing.T, files fixedExtractor, srcs []seed.Source, opts ...seed.RunnerOption) *pipeline {
	t.Helper()
	store, err := badgerstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := newMemRegistry(srcs...)
	emb := &countingEmbedder{}
	runner := seed.NewRunner(files, text.NewSplitter(text.DefaultChunkSize, text.DefaultChunkOverlap), emb, store, reg, reg, opts...)
	return &pipeline{store: store, registry: reg, embedder: emb, coord: seed.NewCoordinator(runner, nil)}
}

func (p *pipeline) count(t *testing.T) int {
	t.Helper()
	n, err := p.store.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestPipeline_FixedWidthScenario(t *testing.T) {
	srcs := []seed.Source{{ID: "s1", Kind: seed.KindFile, Location: "a.txt"}}
	p := newPipeline(t, fixedExtractor{"a.txt": strings.Repeat("abc", 300)}, srcs)

	outs := p.coord.Run(context.Background(), srcs, nil)

	require.Len(t, outs, 1)
	assert.Equal(t, seed.Outcome{OK: true, ID: "s1", Chunks: 2}, outs[0])
	assert.Equal(t, 2, p.count(t))
	got := p.registry.get("s1")
	assert.Equal(t, seed.StatusSeeded, got.Status)
	assert.Equal(t, 2, got.ChunkCount)
}

func TestPipeline_Idempotent(t *testing.T) {
	content := strings.Repeat("Seeding is idempotent across runs. ", 60)
	srcs := []seed.Source{{ID: "s1", Kind: seed.KindFile, Location: "a.txt"}}
	p := newPipeline(t, fixedExtractor{"a.txt": content}, srcs)

	first := p.coord.Run(context.Background(), srcs, nil)
	before := p.count(t)
	second := p.coord.Run(context.Background(), srcs, nil)

	assert.Equal(t, first[0].Chunks, second[0].Chunks)
	assert.Equal(t, before, p.count(t))
	assert.Len(t, p.registry.logs, 2)
}

func TestPipeline_DedupAcrossSources(t *testing.T) {
	srcs := []seed.Source{
		{ID: "s1", Kind: seed.KindFile, Location: "first.txt"},
		{ID: "s2", Kind: seed.KindFile, Location: "second.txt"},
	}
	p := newPipeline(t, fixedExtractor{"first.txt": "Hello world", "second.txt": "Hello world"}, srcs)

	outs := p.coord.Run(context.Background(), srcs, nil)

	assert.True(t, outs[0].OK)
	assert.True(t, outs[1].OK)
	assert.Equal(t, 1, p.count(t))
	rec, err := p.store.Get(context.Background(), text.Hash("Hello world"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "first.txt", rec.Source)
}

func TestPipeline_EmptyContent(t *testing.T) {
	srcs := []seed.Source{{ID: "s1", Kind: seed.KindURL, Location: "https://example.com/empty"}}
	p := newPipeline(t, fixedExtractor{"https://example.com/empty": "  \n "}, srcs)

	outs := p.coord.Run(context.Background(), srcs, nil)

	assert.Equal(t, seed.Outcome{OK: true, ID: "s1", Chunks: 0}, outs[0])
	got := p.registry.get("s1")
	assert.Equal(t, seed.StatusSeeded, got.Status)
	assert.Equal(t, 0, got.ChunkCount)
}

func TestPipeline_PartialFailureIsolation(t *testing.T) {
	srcs := []seed.Source{
		{ID: "s1", Kind: seed.KindFile, Location: "ok1.txt"},
		{ID: "s2", Kind: seed.KindFile, Location: "bad.txt"},
		{ID: "s3", Kind: seed.KindFile, Location: "missing.txt"},
		{ID: "s4", Kind: seed.KindFile, Location: "ok2.txt"},
	}
	p := newPipeline(t, fixedExtractor{
		"ok1.txt": "first document",
		"bad.txt": "this one POISON breaks",
		"ok2.txt": "fourth document",
	}, srcs)
	p.embedder.failOn = "POISON"

	outs := p.coord.Run(context.Background(), srcs, nil)

	require.Len(t, outs, 4)
	assert.True(t, outs[0].OK)
	assert.False(t, outs[1].OK)
	assert.Contains(t, outs[1].Error, "provider unavailable")
	assert.False(t, outs[2].OK)
	assert.Contains(t, outs[2].Error, "extraction failed")
	assert.True(t, outs[3].OK)

	assert.Equal(t, seed.StatusError, p.registry.get("s2").Status)
	assert.Equal(t, seed.StatusError, p.registry.get("s3").Status)
	assert.Equal(t, seed.StatusSeeded, p.registry.get("s4").Status)
	assert.Len(t, p.registry.logs, 4)
}

func TestPipeline_ProgressMonotonic(t *testing.T) {
	content := strings.Repeat("word ", 1000)
	srcs := []seed.Source{{ID: "s1", Kind: seed.KindFile, Location: "a.txt"}}
	p := newPipeline(t, fixedExtractor{"a.txt": content}, srcs)
	rec := &recorder{}

	p.coord.Run(context.Background(), srcs, rec)

	last := 0
	progress := 0
	for _, ev := range rec.events {
		if ev.Type != seed.EventProgress {
			continue
		}
		progress++
		require.NotNil(t, ev.Pct)
		assert.GreaterOrEqual(t, *ev.Pct, last)
		assert.LessOrEqual(t, *ev.Pct, 100)
		last = *ev.Pct
	}
	assert.Greater(t, progress, 1)
	assert.Equal(t, 100, last)
}

func TestPipeline_SkipExistingAvoidsEmbedding(t *testing.T) {
	srcs := []seed.Source{{ID: "s1", Kind: seed.KindFile, Location: "a.txt"}}
	p := newPipeline(t, fixedExtractor{"a.txt": strings.Repeat("abc", 300)}, srcs, seed.WithSkipExisting(true))

	p.coord.Run(context.Background(), srcs, nil)
	calls := p.embedder.calls
	outs := p.coord.Run(context.Background(), srcs, nil)

	assert.True(t, outs[0].OK)
	assert.Equal(t, 2, outs[0].Chunks)
	assert.Equal(t, calls, p.embedder.calls)
}
