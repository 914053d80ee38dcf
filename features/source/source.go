package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragseed/internal/seed"
)

var (
	ErrInvalidURL  = errors.New("URL must start with http")
	ErrInvalidName = errors.New("file name is required")
	ErrNotFound    = errors.New("source not found")
)

type Repository interface {
	Save(ctx context.Context, src *seed.Source) error
	Get(ctx context.Context, id string) (*seed.Source, error)
	List(ctx context.Context) ([]seed.Source, error)
	ListByStatus(ctx context.Context, status seed.Status) ([]seed.Source, error)
	ListByIDs(ctx context.Context, ids []string) ([]seed.Source, error)
	MarkSeeded(ctx context.Context, id string, chunks int, at time.Time) error
	MarkFailed(ctx context.Context, id, message string, at time.Time) error
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status seed.Status) (int, error)
}

type Service struct {
	repo Repository
	root string
	now  func() time.Time
}

// NewService stores uploads under root, the same directory the extractor
// resolves file sources against.
func NewService(repo Repository, root string) *Service {
	return &Service{repo: repo, root: root, now: time.Now}
}

func (s *Service) CreateURL(ctx context.Context, url string) (*seed.Source, error) {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http") {
		return nil, ErrInvalidURL
	}
	src := &seed.Source{
		Kind:     seed.KindURL,
		Location: url,
		Status:   seed.StatusPending,
	}
	if err := s.repo.Save(ctx, src); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "url source registered", "id", src.ID, "url", url)
	return src, nil
}

var whitespace = regexp.MustCompile(`\s+`)

func baseName(original string) string {
	b := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(original, `\`, "/")))
	if b == "/" || b == "." || strings.TrimSpace(b) == "" {
		return ""
	}
	return whitespace.ReplaceAllString(b, "_")
}

// StoredName is the on-disk name for an upload: upload time in unix millis,
// then the base name with whitespace runs replaced by underscores.
func StoredName(original string, at time.Time) string {
	return fmt.Sprintf("%d_%s", at.UnixMilli(), baseName(original))
}

// Upload writes r to the document root and registers it as a pending file
// source. The file is removed again when registration fails.
func (s *Service) Upload(ctx context.Context, original string, r io.Reader) (*seed.Source, error) {
	if baseName(original) == "" {
		return nil, ErrInvalidName
	}
	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return nil, fmt.Errorf("create document root: %w", err)
	}

	name := StoredName(original, s.now())
	path := filepath.Join(s.root, name)
	dst, err := os.Create(path) // #nosec G304 -- name is derived from a cleaned base name
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		s.remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		s.remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}

	src := &seed.Source{
		Kind:         seed.KindFile,
		Location:     name,
		OriginalName: original,
		Status:       seed.StatusPending,
	}
	if err := s.repo.Save(ctx, src); err != nil {
		s.remove(path)
		return nil, err
	}
	slog.InfoContext(ctx, "file source registered", "id", src.ID, "path", name)
	return src, nil
}

func (s *Service) remove(path string) {
	if err := os.Remove(path); err != nil {
		slog.Warn("failed to clean up uploaded file", "error", err, "path", path)
	}
}

func (s *Service) Get(ctx context.Context, id string) (*seed.Source, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]seed.Source, error) {
	return s.repo.List(ctx)
}

func (s *Service) Pending(ctx context.Context) ([]seed.Source, error) {
	return s.repo.ListByStatus(ctx, seed.StatusPending)
}

// Select resolves a seeding batch: the given ids in the given order, or every
// pending source when ids is empty. Unknown ids are skipped.
func (s *Service) Select(ctx context.Context, ids []string) ([]seed.Source, error) {
	if len(ids) == 0 {
		return s.Pending(ctx)
	}

	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			slog.WarnContext(ctx, "ignoring invalid source id", "id", id)
			continue
		}
		valid = append(valid, id)
	}
	if len(valid) == 0 {
		return nil, nil
	}

	found, err := s.repo.ListByIDs(ctx, valid)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]seed.Source, len(found))
	for _, src := range found {
		byID[src.ID] = src
	}

	out := make([]seed.Source, 0, len(valid))
	seen := make(map[string]bool, len(valid))
	for _, id := range valid {
		src, ok := byID[id]
		if !ok {
			slog.WarnContext(ctx, "source not found, skipping", "id", id)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, src)
	}
	return out, nil
}
