package postgres

import (
	"context"
	"database/sql"

	"github.com/wellb3tz/axiscore/internal/model"
	"github.com/wellb3tz/axiscore/internal/repository"
)

// UserPostgres stores Telegram users.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

func (r *UserPostgres) Upsert(ctx context.Context, u *model.User) error {
	const q = `
		INSERT INTO users (telegram_id, username)
		VALUES ($1, $2)
		ON CONFLICT (telegram_id) DO UPDATE SET username = EXCLUDED.username
	`
	_, err := r.db.ExecContext(ctx, q, u.TelegramID, u.Username)
	return err
}

func (r *UserPostgres) FindByID(ctx context.Context, telegramID string) (*model.User, error) {
	const q = `SELECT telegram_id, username, created_at FROM users WHERE telegram_id = $1`
	var u model.User
	if err := r.db.QueryRowContext(ctx, q, telegramID).Scan(&u.TelegramID, &u.Username, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
