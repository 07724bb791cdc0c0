// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres) and return sql.ErrNoRows
// for missing rows; translating that into domain errors is the service's job.
package repository

import (
	"context"

	"github.com/wellb3tz/axiscore/internal/model"
)

// ModelRepository defines data access for stored models using SQL queries only.
type ModelRepository interface {
	// Create inserts a new model row, including inline content when present.
	Create(ctx context.Context, m *model.StoredModel) (*model.StoredModel, error)

	// FindByID returns a model, with inline content, by its identifier.
	FindByID(ctx context.Context, id string) (*model.StoredModel, error)

	// ListByOwner returns a page of an owner's models, newest first, without content.
	ListByOwner(ctx context.Context, telegramID string, pq PageQuery) (*PageResult[model.StoredModel], error)

	// Delete removes a model row. Deleting a missing row is not an error.
	Delete(ctx context.Context, id string) error
}

// FailureRepository persists archives that could not be processed.
type FailureRepository interface {
	// Find returns the failure recorded for a file id.
	Find(ctx context.Context, fileID string) (*model.FailureRecord, error)

	// Create records a failure. Recording the same file id twice keeps the first record.
	Create(ctx context.Context, rec *model.FailureRecord) error

	// Delete clears a failure so the file can be processed again.
	Delete(ctx context.Context, fileID string) error
}

// UserRepository stores Telegram users.
type UserRepository interface {
	// Upsert creates the user or refreshes the username.
	Upsert(ctx context.Context, u *model.User) error

	// FindByID returns a user by Telegram id.
	FindByID(ctx context.Context, telegramID string) (*model.User, error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
