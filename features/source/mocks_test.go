package source_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"ragseed/internal/seed"
)

// MockRepo implements source.Repository
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Save(ctx context.Context, src *seed.Source) error {
	args := m.Called(ctx, src)
	return args.Error(0)
}

func (m *MockRepo) Get(ctx context.Context, id string) (*seed.Source, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seed.Source), args.Error(1)
}

func (m *MockRepo) List(ctx context.Context) ([]seed.Source, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seed.Source), args.Error(1)
}

func (m *MockRepo) ListByStatus(ctx context.Context, status seed.Status) ([]seed.Source, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seed.Source), args.Error(1)
}

func (m *MockRepo) ListByIDs(ctx context.Context, ids []string) ([]seed.Source, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seed.Source), args.Error(1)
}

func (m *MockRepo) MarkSeeded(ctx context.Context, id string, chunks int, at time.Time) error {
	return m.Called(ctx, id, chunks, at).Error(0)
}

func (m *MockRepo) MarkFailed(ctx context.Context, id, message string, at time.Time) error {
	return m.Called(ctx, id, message, at).Error(0)
}

func (m *MockRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) CountByStatus(ctx context.Context, status seed.Status) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}
