package text

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 100
)

type Chunk struct {
	Text string
	Hash string
}

// Splitter cuts text on paragraph, then line, then word boundaries and falls
// back to single characters when a span has no boundary inside the window.
type Splitter struct {
	inner textsplitter.RecursiveCharacter
}

func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}
	return &Splitter{
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
	}
}

// Split returns nil for blank input. Output is deterministic for a given
// input and configuration.
func (s *Splitter) Split(content string) ([]Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	parts, err := s.inner.SplitText(content)
	if err != nil {
		return nil, err
	}
	chunks := make([]Chunk, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		chunks = append(chunks, Chunk{Text: p, Hash: Hash(p)})
	}
	return chunks, nil
}
