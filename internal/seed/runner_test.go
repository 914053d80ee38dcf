package seed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ragseed/internal/seed"
	"ragseed/internal/text"
)

type runnerMocks struct {
	ext *MockExtractor
	sp  *MockSplitter
	emb *MockEmbedder
	st  *MockStore
	up  *MockUpdater
	lw  *MockLogWriter
}

func newRunnerMocks() runnerMocks {
	return runnerMocks{
		ext: new(MockExtractor),
		sp:  new(MockSplitter),
		emb: new(MockEmbedder),
		st:  new(MockStore),
		up:  new(MockUpdater),
		lw:  new(MockLogWriter),
	}
}

func (m runnerMocks) runner(opts ...seed.RunnerOption) *seed.Runner {
	return seed.NewRunner(m.ext, m.sp, m.emb, m.st, m.up, m.lw, opts...)
}

func chunksOf(parts ...string) []text.Chunk {
	out := make([]text.Chunk, 0, len(parts))
	for _, p := range parts {
		out = append(out, text.Chunk{Text: p, Hash: text.Hash(p)})
	}
	return out
}

func TestRunner_Success(t *testing.T) {
	m := newRunnerMocks()
	src := seed.Source{ID: "s1", Kind: seed.KindFile, Location: "a.txt"}
	chunks := chunksOf("one", "two", "three")

	m.ext.On("Extract", mock.Anything, src).Return("one two three", "a.txt", nil)
	m.sp.On("Split", "one two three").Return(chunks, nil)
	for _, c := range chunks {
		m.emb.On("Embed", mock.Anything, c.Text).Return([]float32{0.1}, 4, nil).Once()
		m.st.On("Upsert", mock.Anything, c.Hash, c.Text, []float32{0.1}, "a.txt").Return(nil).Once()
	}
	m.up.On("MarkSeeded", mock.Anything, "s1", 3, mock.Anything).Return(nil)
	m.lw.On("Append", mock.Anything, mock.MatchedBy(func(e *seed.LogEntry) bool {
		return e.SourceID == "s1" && e.Success && e.ChunkCount == 3 && e.TokensUsed == 12 && e.Kind == seed.KindFile
	})).Return(nil)

	rec := &recorder{}
	out := m.runner().Run(context.Background(), src, rec)

	assert.Equal(t, seed.Outcome{OK: true, ID: "s1", Chunks: 3}, out)
	assert.Equal(t, []seed.EventType{
		seed.EventStart, seed.EventProgress, seed.EventProgress, seed.EventProgress, seed.EventDone,
	}, rec.types())
	assert.Equal(t, 33, *rec.events[1].Pct)
	assert.Equal(t, 67, *rec.events[2].Pct)
	assert.Equal(t, 100, *rec.events[3].Pct)
	m.emb.AssertExpectations(t)
	m.st.AssertExpectations(t)
	m.up.AssertExpectations(t)
	m.lw.AssertExpectations(t)
	m.st.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

func TestRunner_EmptyContentIsSuccess(t *testing.T) {
	m := newRunnerMocks()
	src := seed.Source{ID: "s1", Kind: seed.KindURL, Location: "https://example.com"}

	m.ext.On("Extract", mock.Anything, src).Return("", "https://example.com", nil)
	m.sp.On("Split", "").Return(nil, nil)
	m.up.On("MarkSeeded", mock.Anything, "s1", 0, mock.Anything).Return(nil)
	m.lw.On("Append", mock.Anything, mock.MatchedBy(func(e *seed.LogEntry) bool {
		return e.Success && e.ChunkCount == 0
	})).Return(nil)

	rec := &recorder{}
	out := m.runner().Run(context.Background(), src, rec)

	assert.True(t, out.OK)
	assert.Equal(t, 0, out.Chunks)
	assert.Equal(t, []seed.EventType{seed.EventStart, seed.EventDone}, rec.types())
	m.emb.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestRunner_ExtractionFailure(t *testing.T) {
	m := newRunnerMocks()
	src := seed.Source{ID: "s1", Kind: seed.KindFile, Location: "missing.txt"}

	m.ext.On("Extract", mock.Anything, src).Return("", "", errors.New("open missing.txt: no such file"))
	m.up.On("MarkFailed", mock.Anything, "s1", "extraction failed: open missing.txt: no such file", mock.Anything).Return(nil)
	m.lw.On("Append", mock.Anything, mock.MatchedBy(func(e *seed.LogEntry) bool {
		return !e.Success && e.Error != ""
	})).Return(nil)

	rec := &recorder{}
	out := m.runner().Run(context.Background(), src, rec)

	assert.False(t, out.OK)
	assert.Equal(t, "extraction failed: open missing.txt: no such file", out.Error)
	assert.Equal(t, []seed.EventType{seed.EventStart, seed.EventError}, rec.types())
	assert.Equal(t, out.Error, rec.events[1].Message)
	m.sp.AssertNotCalled(t, "Split", mock.Anything)
	m.up.AssertExpectations(t)
	m.lw.AssertExpectations(t)
}

func TestRunner_EmbeddingFailureKeepsCommittedChunks(t *testing.T) {
	m := newRunnerMocks()
	src := seed.Source{ID: "s1", Kind: seed.KindFile, Location: "a.txt"}
	chunks := chunksOf("one", "two", "three")

	m.ext.On("Extract", mock.Anything, src).Return("x", "a.txt", nil)
	m.sp.On("Split", "x").Return(chunks, nil)
	m.emb.On("Embed", mock.Anything, "one").Return([]float32{1}, 5, nil)
	m.emb.On("Embed", mock.Anything, "two").Return(nil, 0, errors.New("rate limited"))
	m.st.On("Upsert", mock.Anything, chunks[0].Hash, "one", []float32{1}, "a.txt").Return(nil)
	m.up.On("MarkFailed", mock.Anything, "s1", "embedding chunk 1 failed: rate limited", mock.Anything).Return(nil)
	m.lw.On("Append", mock.Anything, mock.MatchedBy(func(e *seed.LogEntry) bool {
		return !e.Success && e.TokensUsed == 5
	})).Return(nil)

	rec := &recorder{}
	out := m.runner().Run(context.Background(), src, rec)

	assert.False(t, out.OK)
	assert.Equal(t, []seed.EventType{seed.EventStart, seed.EventProgress, seed.EventError}, rec.types())
	m.st.AssertNumberOfCalls(t, "Upsert", 1)
	m.emb.AssertNotCalled(t, "Embed", mock.Anything, "three")
	m.up.AssertNotCalled(t, "MarkSeeded", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_StoreFailure(t *testing.T) {
	m := newRunnerMocks()
	src := seed.Source{ID: "s1", Kind: seed.KindFile, Location: "a.txt"}
	chunks := chunksOf("one")

	m.ext.On("Extract", mock.Anything, src).Return("one", "a.txt", nil)
	m.sp.On("Split", "one").Return(chunks, nil)
	m.emb.On("Embed", mock.Anything, "one").Return([]float32{1}, 1, nil)
	m.st.On("Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	m.up.On("MarkFailed", mock.Anything, "s1", mock.Anything, mock.Anything).Return(nil)
	m.lw.On("Append", mock.Anything, mock.Anything).Return(nil)

	out := m.runner().Run(context.Background(), src, nil)

	assert.False(t, out.OK)
	assert.Contains(t, out.Error, "connection refused")
}

func TestRunner_CompletionWriteFailureRoutesToFailure(t *testing.T) {
	m := newRunnerMocks()
	src := seed.Source{ID: "s1", Kind: seed.KindFile, Location: "a.txt"}

	m.ext.On("Extract", mock.Anything, src).Return("", "a.txt", nil)
	m.sp.On("Split", "").Return(nil, nil)
	m.up.On("MarkSeeded", mock.Anything, "s1", 0, mock.Anything).Return(errors.New("db down"))
	m.up.On("MarkFailed", mock.Anything, "s1", mock.Anything, mock.Anything).Return(errors.New("db down"))
	m.lw.On("Append", mock.Anything, mock.Anything).Return(errors.New("db down"))

	rec := &recorder{}
	out := m.runner().Run(context.Background(), src, rec)

	assert.False(t, out.OK)
	assert.Contains(t, out.Error, "update source status")
	assert.Equal(t, []seed.EventType{seed.EventStart, seed.EventError}, rec.types())
}

func TestRunner_SkipExisting(t *testing.T) {
	m := newRunnerMocks()
	src := seed.Source{ID: "s1", Kind: seed.KindFile, Location: "a.txt"}
	chunks := chunksOf("old", "new")

	m.ext.On("Extract", mock.Anything, src).Return("x", "a.txt", nil)
	m.sp.On("Split", "x").Return(chunks, nil)
	m.st.On("Exists", mock.Anything, chunks[0].Hash).Return(true, nil)
	m.st.On("Exists", mock.Anything, chunks[1].Hash).Return(false, nil)
	m.emb.On("Embed", mock.Anything, "new").Return([]float32{1}, 2, nil)
	m.st.On("Upsert", mock.Anything, chunks[1].Hash, "new", []float32{1}, "a.txt").Return(nil)
	m.up.On("MarkSeeded", mock.Anything, "s1", 2, mock.Anything).Return(nil)
	m.lw.On("Append", mock.Anything, mock.Anything).Return(nil)

	out := m.runner(seed.WithSkipExisting(true)).Run(context.Background(), src, nil)

	assert.True(t, out.OK)
	assert.Equal(t, 2, out.Chunks)
	m.emb.AssertNotCalled(t, "Embed", mock.Anything, "old")
}

func TestRunner_FailureRecordedAfterCancel(t *testing.T) {
	m := newRunnerMocks()
	src := seed.Source{ID: "s1", Kind: seed.KindURL, Location: "https://example.com"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m.ext.On("Extract", mock.Anything, src).Return("", "", context.Canceled)
	m.up.On("MarkFailed", mock.MatchedBy(func(c context.Context) bool {
		return c.Err() == nil
	}), "s1", mock.Anything, mock.Anything).Return(nil)
	m.lw.On("Append", mock.Anything, mock.Anything).Return(nil)

	out := m.runner().Run(ctx, src, nil)

	assert.False(t, out.OK)
	m.up.AssertExpectations(t)
}

func TestRunner_DurationUsesClock(t *testing.T) {
	m := newRunnerMocks()
	src := seed.Source{ID: "s1", Kind: seed.KindFile, Location: "a.txt"}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}

	m.ext.On("Extract", mock.Anything, src).Return("", "a.txt", nil)
	m.sp.On("Split", "").Return(nil, nil)
	m.up.On("MarkSeeded", mock.Anything, "s1", 0, base.Add(2*time.Second)).Return(nil)
	var entry *seed.LogEntry
	m.lw.On("Append", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		entry = args.Get(1).(*seed.LogEntry)
	}).Return(nil)

	out := m.runner(seed.WithClock(clock)).Run(context.Background(), src, nil)

	require.True(t, out.OK)
	require.NotNil(t, entry)
	assert.Equal(t, int64(1000), entry.DurationMs)
}
