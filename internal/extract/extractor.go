package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ragseed/internal/seed"
)

var (
	ErrOutsideRoot     = errors.New("path escapes document root")
	ErrUnsupportedKind = errors.New("unsupported source kind")
)

const DefaultFetchTimeout = 15 * time.Second

// Renderer fetches a page and returns the markup of its rendered body.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type Extractor struct {
	root         string
	renderer     Renderer
	fetchTimeout time.Duration
	logger       *slog.Logger
}

type Option func(*Extractor)

func WithFetchTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

func New(root string, renderer Renderer, opts ...Option) *Extractor {
	e := &Extractor{
		root:         root,
		renderer:     renderer,
		fetchTimeout: DefaultFetchTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the source's plain text and the name recorded on its
// stored chunks. Every failure comes back as *seed.ExtractionError.
func (e *Extractor) Extract(ctx context.Context, src seed.Source) (string, string, error) {
	var (
		content string
		name    string
		err     error
	)
	switch src.Kind {
	case seed.KindFile:
		content, name, err = e.extractFile(ctx, src.Location)
	case seed.KindURL:
		content, err = e.extractURL(ctx, src.Location)
		name = src.Location
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedKind, src.Kind)
	}
	if err != nil {
		return "", "", &seed.ExtractionError{SourceID: src.ID, Err: err}
	}
	return content, name, nil
}

func (e *Extractor) extractFile(ctx context.Context, location string) (string, string, error) {
	rel := filepath.Clean(filepath.FromSlash(location))
	if !filepath.IsLocal(rel) {
		return "", "", fmt.Errorf("%w: %s", ErrOutsideRoot, location)
	}
	full, err := filepath.Abs(filepath.Join(e.root, rel))
	if err != nil {
		return "", "", err
	}

	var content string
	switch strings.ToLower(filepath.Ext(full)) {
	case ".pdf":
		content, err = readPDF(ctx, full)
	case ".docx":
		content, err = readDOCX(full)
	default:
		content, err = readPlain(full)
	}
	if err != nil {
		return "", "", err
	}
	e.logger.DebugContext(ctx, "file extracted", "path", full, "length", len(content))
	return content, full, nil
}

func (e *Extractor) extractURL(ctx context.Context, url string) (string, error) {
	if e.renderer == nil {
		return "", errors.New("no page renderer configured")
	}
	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	markup, err := e.renderer.Render(ctx, url)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	content := StripTags(markup)
	e.logger.DebugContext(ctx, "page extracted", "url", url, "length", len(content))
	return content, nil
}

func readPlain(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), "�"), nil
}
