package mocks

import (
	"context"

	"github.com/ganot/inscritos/internal/domain/activity"
	"github.com/ganot/inscritos/internal/domain/mutation"
	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/upload"
	"github.com/ganot/inscritos/internal/repository"
	"github.com/stretchr/testify/mock"
)

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ViewStateRepository is a mock for repository.ViewStateRepository.
type ViewStateRepository struct {
	mock.Mock
}

func (m *ViewStateRepository) Get(ctx context.Context, pageID string) (*repository.ViewState, error) {
	args := m.Called(ctx, pageID)
	if st, ok := args.Get(0).(*repository.ViewState); ok {
		return st, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ViewStateRepository) Save(ctx context.Context, state *repository.ViewState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *ViewStateRepository) Delete(ctx context.Context, pageID string) error {
	args := m.Called(ctx, pageID)
	return args.Error(0)
}

func (m *ViewStateRepository) List(ctx context.Context) ([]repository.ViewState, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]repository.ViewState); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityLogger is a mock for mutation.ActivityLogger.
type ActivityLogger struct {
	mock.Mock
}

func (m *ActivityLogger) LogActivity(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// Backend is a mock for mutation.Backend.
type Backend struct {
	mock.Mock
}

func (m *Backend) Fetch(ctx context.Context, src record.Source, q record.Query) (record.Dataset, error) {
	args := m.Called(ctx, src, q)
	if ds, ok := args.Get(0).(record.Dataset); ok {
		return ds, args.Error(1)
	}
	return record.Dataset{}, args.Error(1)
}

func (m *Backend) Patch(ctx context.Context, src record.Source, id string, fields map[string]any) (record.Record, error) {
	args := m.Called(ctx, src, id, fields)
	if rec, ok := args.Get(0).(record.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) Create(ctx context.Context, src record.Source, rows []record.Record) (mutation.IngestResult, error) {
	args := m.Called(ctx, src, rows)
	if res, ok := args.Get(0).(mutation.IngestResult); ok {
		return res, args.Error(1)
	}
	return mutation.IngestResult{}, args.Error(1)
}

func (m *Backend) Delete(ctx context.Context, src record.Source, req mutation.DeleteRequest) error {
	args := m.Called(ctx, src, req)
	return args.Error(0)
}

func (m *Backend) ValidateBatch(ctx context.Context, entries []mutation.BatchEntry) (mutation.BatchResult, error) {
	args := m.Called(ctx, entries)
	if res, ok := args.Get(0).(mutation.BatchResult); ok {
		return res, args.Error(1)
	}
	return mutation.BatchResult{}, args.Error(1)
}

// Target is a mock for mutation.Target.
type Target struct {
	mock.Mock
	Src record.Source
}

func (m *Target) Source() record.Source {
	return m.Src
}

func (m *Target) Reload(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// UploadLister is a mock for upload.Lister.
type UploadLister struct {
	mock.Mock
}

func (m *UploadLister) Uploads(ctx context.Context, filter upload.Filter) (upload.Page, error) {
	args := m.Called(ctx, filter)
	if page, ok := args.Get(0).(upload.Page); ok {
		return page, args.Error(1)
	}
	return upload.Page{}, args.Error(1)
}
