package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"
)

// sqlStorage keeps content in the model_content table keyed by storage key.
type sqlStorage struct {
	db *sql.DB
}

// NewPostgres returns a Storage backed by the model_content table.
func NewPostgres(db *sql.DB) Storage {
	return &sqlStorage{db: db}
}

func (s *sqlStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("read content: %w", err)
	}
	if opt.Size >= 0 && int64(len(content)) != opt.Size {
		return ObjectInfo{}, fmt.Errorf("size mismatch: declared %d, read %d", opt.Size, len(content))
	}

	const q = `
		INSERT INTO model_content (storage_key, content, content_type, created_at)
		VALUES ($1, $2, $3, $4)
	`
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, q, key, content, opt.ContentType, now); err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:          key,
		Size:         int64(len(content)),
		ContentType:  opt.ContentType,
		LastModified: now,
		Metadata:     opt.Metadata,
	}, nil
}

func (s *sqlStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	const q = `SELECT content, content_type, created_at FROM model_content WHERE storage_key = $1`
	var (
		content []byte
		info    = ObjectInfo{Key: key}
	)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&content, &info.ContentType, &info.LastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	info.Size = int64(len(content))
	return io.NopCloser(bytes.NewReader(content)), info, nil
}

func (s *sqlStorage) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM model_content WHERE storage_key = $1`
	_, err := s.db.ExecContext(ctx, q, key)
	return err
}
