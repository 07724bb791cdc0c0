package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Laisky/zap"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellb3tz/axiscore/internal/config"
	"github.com/wellb3tz/axiscore/internal/guard"
	handlers "github.com/wellb3tz/axiscore/internal/http/handler"
	"github.com/wellb3tz/axiscore/internal/http/middleware"
	serviceMocks "github.com/wellb3tz/axiscore/internal/service/mocks"
)

func init() {
	logger = zap.NewNop()
}

func TestNewStorage(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("postgres default", func(t *testing.T) {
		store, err := newStorage(context.Background(), &config.AppConfig{}, db)
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("minio without endpoint", func(t *testing.T) {
		c := &config.AppConfig{Storage: config.StorageConfig{Backend: "minio"}}
		_, err := newStorage(context.Background(), c, db)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		c := &config.AppConfig{Storage: config.StorageConfig{Backend: "floppy"}}
		_, err := newStorage(context.Background(), c, db)
		assert.ErrorContains(t, err, "floppy")
	})
}

func TestNewInFlight(t *testing.T) {
	t.Run("memory when no redis", func(t *testing.T) {
		inflight, closeFn, err := newInFlight(context.Background(), &config.AppConfig{})
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &guard.MemoryInFlight{}, inflight)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c := &config.AppConfig{Redis: config.RedisConfig{Addr: mr.Addr()}}

		inflight, closeFn, err := newInFlight(context.Background(), c)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &guard.RedisInFlight{}, inflight)

		_, ok, err := inflight.Acquire(context.Background(), "file-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, _, err := newInFlight(context.Background(), &config.AppConfig{Redis: config.RedisConfig{Addr: addr}})
		assert.Error(t, err)
	})
}

func TestNewAppServesMetrics(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	reg := prometheus.NewRegistry()
	prom, err := middleware.NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := newApp(db, reg, prom, handlers.Deps{
		Models: new(serviceMocks.MockModelService),
		Users:  new(serviceMocks.MockUserService),
	})

	dbMock.ExpectPing()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `http_requests_total{method="GET",path="/health",status="200"} 1`)
}
