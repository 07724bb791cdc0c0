package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	tb "gopkg.in/telebot.v3"

	"github.com/wellb3tz/axiscore/internal/telegram"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) SendText(ctx context.Context, chatID int64, text string) error {
	args := m.Called(ctx, chatID, text)
	return args.Error(0)
}

func (m *MockClient) SendButtons(ctx context.Context, chatID int64, text string, buttons []telegram.Button) error {
	args := m.Called(ctx, chatID, text, buttons)
	return args.Error(0)
}

func (m *MockClient) Download(ctx context.Context, fileID string) ([]byte, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockClient) Me(ctx context.Context) (*tb.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tb.User), args.Error(1)
}

func (m *MockClient) SetWebhook(ctx context.Context, url, secret string) error {
	args := m.Called(ctx, url, secret)
	return args.Error(0)
}

func (m *MockClient) RemoveWebhook(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) WebhookInfo(ctx context.Context) (*tb.Webhook, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tb.Webhook), args.Error(1)
}
