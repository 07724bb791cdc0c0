package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wellb3tz/axiscore/internal/model"
	"github.com/wellb3tz/axiscore/internal/repository"
)

type MockModelRepository struct {
	mock.Mock
}

func (m *MockModelRepository) Create(ctx context.Context, sm *model.StoredModel) (*model.StoredModel, error) {
	args := m.Called(ctx, sm)
	if f, ok := args.Get(0).(func(context.Context, *model.StoredModel) *model.StoredModel); ok {
		return f(ctx, sm), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredModel), args.Error(1)
}

func (m *MockModelRepository) FindByID(ctx context.Context, id string) (*model.StoredModel, error) {
	args := m.Called(ctx, id)
	if f, ok := args.Get(0).(func(context.Context, string) *model.StoredModel); ok {
		return f(ctx, id), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredModel), args.Error(1)
}

func (m *MockModelRepository) ListByOwner(ctx context.Context, telegramID string, pq repository.PageQuery) (*repository.PageResult[model.StoredModel], error) {
	args := m.Called(ctx, telegramID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.StoredModel]), args.Error(1)
}

func (m *MockModelRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockFailureRepository struct {
	mock.Mock
}

func (m *MockFailureRepository) Find(ctx context.Context, fileID string) (*model.FailureRecord, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FailureRecord), args.Error(1)
}

func (m *MockFailureRepository) Create(ctx context.Context, rec *model.FailureRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockFailureRepository) Delete(ctx context.Context, fileID string) error {
	args := m.Called(ctx, fileID)
	return args.Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Upsert(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, telegramID string) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
