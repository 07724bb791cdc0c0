package storage

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStorage_Put(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgres(db)
	ctx := context.Background()

	t.Run("stores content", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO model_content").
			WithArgs("models/id/a.glb", []byte("glTF"), "model/gltf-binary", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		info, err := store.Put(ctx, "models/id/a.glb", strings.NewReader("glTF"), PutObjectOptions{
			Size:        4,
			ContentType: "model/gltf-binary",
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(4), info.Size)
		assert.Equal(t, "models/id/a.glb", info.Key)
	})

	t.Run("size mismatch", func(t *testing.T) {
		_, err := store.Put(ctx, "k", strings.NewReader("abc"), PutObjectOptions{Size: 10})
		assert.ErrorContains(t, err, "size mismatch")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT content, content_type, created_at FROM model_content WHERE storage_key = ?").
			WithArgs("k").
			WillReturnRows(sqlmock.NewRows([]string{"content", "content_type", "created_at"}).
				AddRow([]byte("payload"), "text/plain", time.Now()))

		rc, info, err := store.Get(ctx, "k")
		require.NoError(t, err)
		defer rc.Close()

		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(body))
		assert.Equal(t, int64(7), info.Size)
		assert.Equal(t, "text/plain", info.ContentType)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT content, content_type, created_at FROM model_content WHERE storage_key = ?").
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		_, _, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM model_content WHERE storage_key = ?").
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, NewPostgres(db).Delete(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_DeleteMissingKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM model_content WHERE storage_key = ?").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, NewPostgres(db).Delete(context.Background(), "gone"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewMinIOValidation(t *testing.T) {
	_, err := NewMinIO(context.Background(), configWith("", "a", "b", "bucket"))
	assert.ErrorContains(t, err, "endpoint is required")

	_, err = NewMinIO(context.Background(), configWith("localhost:9000", "", "", "bucket"))
	assert.ErrorContains(t, err, "credentials are required")

	_, err = NewMinIO(context.Background(), configWith("localhost:9000", "a", "b", ""))
	assert.ErrorContains(t, err, "bucket is required")
}
