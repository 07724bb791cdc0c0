package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wellb3tz/axiscore/internal/service"
)

type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) HandleDocument(ctx context.Context, up service.Upload) service.Outcome {
	args := m.Called(ctx, up)
	return args.Get(0).(service.Outcome)
}

func (m *MockPipeline) ClearFailure(ctx context.Context, fileID string) error {
	args := m.Called(ctx, fileID)
	return args.Error(0)
}
