package seedlog

import (
	"context"

	"ragseed/internal/seed"
)

const DefaultPageSize = 20

// MaxPage bounds page numbers so the row offset cannot overflow.
const MaxPage = 100000

type Repository interface {
	List(ctx context.Context, limit, offset int) ([]seed.LogEntry, error)
	Count(ctx context.Context) (int, error)
}

type Page struct {
	Logs  []seed.LogEntry `json:"logs"`
	Total int             `json:"total"`
}

type Service struct {
	repo     Repository
	pageSize int
}

func NewService(repo Repository, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{repo: repo, pageSize: pageSize}
}

// Page returns one page of entries, newest first. Pages start at 1; lower
// values are treated as the first page and values above MaxPage as MaxPage.
func (s *Service) Page(ctx context.Context, page int) (*Page, error) {
	page = max(1, min(page, MaxPage))
	logs, err := s.repo.List(ctx, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []seed.LogEntry{}
	}
	return &Page{Logs: logs, Total: total}, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
