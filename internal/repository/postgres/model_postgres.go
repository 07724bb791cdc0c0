package postgres

import (
	"context"
	"database/sql"

	"github.com/wellb3tz/axiscore/internal/model"
	"github.com/wellb3tz/axiscore/internal/repository"
)

// ModelPostgres is a PostgreSQL implementation of repository.ModelRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ModelPostgres struct {
	db *sql.DB
}

// NewModelPostgres creates a new ModelPostgres repository.
func NewModelPostgres(db *sql.DB) *ModelPostgres {
	return &ModelPostgres{db: db}
}

var _ repository.ModelRepository = (*ModelPostgres)(nil)

// nullIfEmpty maps "" to NULL so the single-location check constraint holds.
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a new model row and returns the stored record.
func (r *ModelPostgres) Create(ctx context.Context, m *model.StoredModel) (*model.StoredModel, error) {
	const q = `
		INSERT INTO models (id, telegram_id, model_name, model_url, content, content_size, content_type, storage_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, telegram_id, model_name, model_url, content_size, content_type, storage_key, created_at
	`
	var content []byte
	if m.Inline() {
		content = m.Content
	}
	row := r.db.QueryRowContext(ctx, q,
		m.ID,
		m.TelegramID,
		m.Name,
		m.URL,
		content,
		m.Size,
		m.ContentType,
		nullIfEmpty(m.StorageKey),
		m.CreatedAt,
	)
	var (
		out model.StoredModel
		key sql.NullString
	)
	if err := row.Scan(
		&out.ID,
		&out.TelegramID,
		&out.Name,
		&out.URL,
		&out.Size,
		&out.ContentType,
		&key,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	out.StorageKey = key.String
	out.Content = content
	return &out, nil
}

// FindByID fetches a single model, including inline content, by its ID.
func (r *ModelPostgres) FindByID(ctx context.Context, id string) (*model.StoredModel, error) {
	const q = `
		SELECT id, telegram_id, model_name, model_url, content, content_size, content_type, content_encoding, storage_key, created_at
		FROM models
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var (
		m   model.StoredModel
		key sql.NullString
	)
	if err := row.Scan(
		&m.ID,
		&m.TelegramID,
		&m.Name,
		&m.URL,
		&m.Content,
		&m.Size,
		&m.ContentType,
		&m.ContentEncoding,
		&key,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	m.StorageKey = key.String
	return &m, nil
}

// ListByOwner returns an owner's models using LIMIT/OFFSET pagination and a total count.
func (r *ModelPostgres) ListByOwner(ctx context.Context, telegramID string, pq repository.PageQuery) (*repository.PageResult[model.StoredModel], error) {
	const qCount = `SELECT COUNT(*) FROM models WHERE telegram_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, telegramID).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, telegram_id, model_name, model_url, content_size, content_type, created_at
		FROM models
		WHERE telegram_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, qList, telegramID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.StoredModel, 0)
	for rows.Next() {
		var m model.StoredModel
		if err := rows.Scan(
			&m.ID,
			&m.TelegramID,
			&m.Name,
			&m.URL,
			&m.Size,
			&m.ContentType,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.StoredModel]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a model by ID.
func (r *ModelPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM models WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
