package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/wellb3tz/axiscore/internal/model"
	"github.com/wellb3tz/axiscore/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

// UserService registers Telegram accounts.
type UserService interface {
	Register(ctx context.Context, telegramID, username string) error
	Get(ctx context.Context, telegramID string) (*model.User, error)
}

type userService struct {
	repo repository.UserRepository
}

// NewUserService constructs a new UserService.
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) Register(ctx context.Context, telegramID, username string) error {
	if telegramID == "" {
		return ErrOwnerRequired
	}
	return s.repo.Upsert(ctx, &model.User{
		TelegramID: telegramID,
		Username:   username,
		CreatedAt:  time.Now().UTC(),
	})
}

func (s *userService) Get(ctx context.Context, telegramID string) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}
