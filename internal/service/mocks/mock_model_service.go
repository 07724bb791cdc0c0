package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wellb3tz/axiscore/internal/model"
	"github.com/wellb3tz/axiscore/internal/service"
)

type MockModelService struct {
	mock.Mock
}

func (m *MockModelService) Save(ctx context.Context, in service.SaveInput) (*model.StoredModel, error) {
	args := m.Called(ctx, in)
	if f, ok := args.Get(0).(func(context.Context, service.SaveInput) *model.StoredModel); ok {
		return f(ctx, in), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredModel), args.Error(1)
}

func (m *MockModelService) Resolve(ctx context.Context, fragment, filename string) (*service.Content, error) {
	args := m.Called(ctx, fragment, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Content), args.Error(1)
}

func (m *MockModelService) ListForUser(ctx context.Context, telegramID string, limit, offset int) (*service.ModelListResult, error) {
	args := m.Called(ctx, telegramID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ModelListResult), args.Error(1)
}

func (m *MockModelService) AddURL(ctx context.Context, telegramID, name, rawURL string) (*model.StoredModel, error) {
	args := m.Called(ctx, telegramID, name, rawURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredModel), args.Error(1)
}

func (m *MockModelService) Delete(ctx context.Context, telegramID, id string) error {
	args := m.Called(ctx, telegramID, id)
	return args.Error(0)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, telegramID, username string) error {
	args := m.Called(ctx, telegramID, username)
	return args.Error(0)
}

func (m *MockUserService) Get(ctx context.Context, telegramID string) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
