package postgres

import (
	"context"
	"database/sql"

	"github.com/wellb3tz/axiscore/internal/model"
	"github.com/wellb3tz/axiscore/internal/repository"
)

// FailurePostgres stores FailureRecords in the failed_archives table.
type FailurePostgres struct {
	db *sql.DB
}

// NewFailurePostgres creates a new FailurePostgres repository.
func NewFailurePostgres(db *sql.DB) *FailurePostgres {
	return &FailurePostgres{db: db}
}

var _ repository.FailureRepository = (*FailurePostgres)(nil)

func (r *FailurePostgres) Find(ctx context.Context, fileID string) (*model.FailureRecord, error) {
	const q = `
		SELECT file_id, filename, error, telegram_id, created_at
		FROM failed_archives
		WHERE file_id = $1
	`
	var rec model.FailureRecord
	if err := r.db.QueryRowContext(ctx, q, fileID).Scan(
		&rec.FileID,
		&rec.Filename,
		&rec.Error,
		&rec.TelegramID,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *FailurePostgres) Create(ctx context.Context, rec *model.FailureRecord) error {
	const q = `
		INSERT INTO failed_archives (file_id, filename, error, telegram_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (file_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, q, rec.FileID, rec.Filename, rec.Error, rec.TelegramID, rec.CreatedAt)
	return err
}

func (r *FailurePostgres) Delete(ctx context.Context, fileID string) error {
	const q = `DELETE FROM failed_archives WHERE file_id = $1`
	_, err := r.db.ExecContext(ctx, q, fileID)
	return err
}
