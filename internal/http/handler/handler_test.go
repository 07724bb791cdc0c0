package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Laisky/zap"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	tb "gopkg.in/telebot.v3"

	"github.com/wellb3tz/axiscore/internal/auth"
	"github.com/wellb3tz/axiscore/internal/http/middleware"
	"github.com/wellb3tz/axiscore/internal/model"
	"github.com/wellb3tz/axiscore/internal/service"
	serviceMocks "github.com/wellb3tz/axiscore/internal/service/mocks"
	"github.com/wellb3tz/axiscore/internal/telegram"
)

var testSecret = []byte("test-jwt-secret")

func bearer(t *testing.T, telegramID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(telegramID, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetModel(t *testing.T) {
	mockSvc := new(serviceMocks.MockModelService)
	app := fiber.New()
	app.Use(middleware.RequestID())
	app.Get("/models/:id", GetModel(mockSvc))
	app.Get("/models/:id/:filename", GetModel(mockSvc))

	id := uuid.New().String()

	tests := []struct {
		name       string
		path       string
		setupMocks func()
		wantStatus int
		wantCode   string
		wantType   string
		wantBody   string
		wantName   string
	}{
		{
			name: "inline content with filename",
			path: "/models/" + id + "/chair.glb",
			setupMocks: func() {
				mockSvc.On("Resolve", mock.Anything, id, "chair.glb").
					Return(&service.Content{Data: []byte("glTF"), ContentType: "model/gltf-binary", Filename: "chair.glb"}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantType:   "model/gltf-binary",
			wantBody:   "glTF",
			wantName:   "chair.glb",
		},
		{
			name: "filename with quotes",
			path: "/models/" + id + "/q.glb",
			setupMocks: func() {
				mockSvc.On("Resolve", mock.Anything, id, "q.glb").
					Return(&service.Content{Data: []byte("glTF"), ContentType: "model/gltf-binary", Filename: `my "best"; stul.glb`}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantType:   "model/gltf-binary",
			wantBody:   "glTF",
			wantName:   `my "best"; stul.glb`,
		},
		{
			name: "non ascii filename",
			path: "/models/" + id + "/chair.glb",
			setupMocks: func() {
				mockSvc.On("Resolve", mock.Anything, id, "chair.glb").
					Return(&service.Content{Data: []byte("glTF"), ContentType: "model/gltf-binary", Filename: "стул.glb"}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantType:   "model/gltf-binary",
			wantBody:   "glTF",
			wantName:   "стул.glb",
		},
		{
			name: "id only",
			path: "/models/" + id,
			setupMocks: func() {
				mockSvc.On("Resolve", mock.Anything, id, "").
					Return(&service.Content{Data: []byte("FBX"), ContentType: "application/octet-stream", Filename: "model.fbx"}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantType:   "application/octet-stream",
			wantBody:   "FBX",
		},
		{
			name: "no id in locator",
			path: "/models/not-an-id",
			setupMocks: func() {
				mockSvc.On("Resolve", mock.Anything, "not-an-id", "").Return(nil, service.ErrInvalidLocator).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_ID",
		},
		{
			name: "not found",
			path: "/models/" + id + "/gone.glb",
			setupMocks: func() {
				mockSvc.On("Resolve", mock.Anything, id, "gone.glb").Return(nil, service.ErrNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name: "bad legacy encoding",
			path: "/models/" + id + "/old.glb",
			setupMocks: func() {
				mockSvc.On("Resolve", mock.Anything, id, "old.glb").Return(nil, service.ErrDecode).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "DECODE_ERROR",
		},
		{
			name: "storage error",
			path: "/models/" + id + "/x.glb",
			setupMocks: func() {
				mockSvc.On("Resolve", mock.Anything, id, "x.glb").Return(nil, errors.New("connection reset")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMocks()

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				var res errorPayload
				json.NewDecoder(resp.Body).Decode(&res)
				assert.Equal(t, tt.wantCode, res.Error.Code)
				assert.NotEmpty(t, res.RequestID)
				return
			}
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tt.wantBody, string(body))
			assert.Equal(t, tt.wantType, resp.Header.Get("Content-Type"))
			disposition, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
			require.NoError(t, err)
			assert.Equal(t, "inline", disposition)
			if tt.wantName != "" {
				assert.Equal(t, tt.wantName, params["filename"])
			}
		})
	}
	mockSvc.AssertExpectations(t)
}

func TestListModels(t *testing.T) {
	mockSvc := new(serviceMocks.MockModelService)
	app := fiber.New()
	app.Get("/api/models", auth.RequireJWT(testSecret), ListModels(mockSvc))

	t.Run("success", func(t *testing.T) {
		expectedRes := &service.ModelListResult{
			Items: []model.StoredModel{{ID: uuid.New().String(), Name: "chair.glb"}},
			Total: 1,
		}
		mockSvc.On("ListForUser", mock.Anything, "42", 10, 0).Return(expectedRes, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/models?limit=10&offset=0", nil)
		req.Header.Set("Authorization", bearer(t, "42"))
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.ModelListResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/models?limit=abc", nil)
		req.Header.Set("Authorization", bearer(t, "42"))
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_LIMIT", body.Error.Code)
	})

	t.Run("invalid offset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/models?offset=-x", nil)
		req.Header.Set("Authorization", bearer(t, "42"))
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("ListForUser", mock.Anything, "42", 10, 0).Return(nil, errors.New("service error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
		req.Header.Set("Authorization", bearer(t, "42"))
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/models", nil))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAddModel(t *testing.T) {
	mockSvc := new(serviceMocks.MockModelService)
	app := fiber.New()
	app.Post("/api/models", auth.RequireJWT(testSecret), AddModel(mockSvc))

	post := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/models", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer(t, "42"))
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		m := &model.StoredModel{ID: uuid.New().String(), Name: "duck.glb", URL: "https://cdn.example.com/duck.glb"}
		mockSvc.On("AddURL", mock.Anything, "42", "duck.glb", m.URL).Return(m, nil).Once()

		resp := post(`{"model_url":"https://cdn.example.com/duck.glb","model_name":"duck.glb"}`)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var got model.StoredModel
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, m.ID, got.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing url", func(t *testing.T) {
		resp := post(`{"model_name":"duck.glb"}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "URL_REQUIRED", body.Error.Code)
	})

	t.Run("non http url", func(t *testing.T) {
		mockSvc.On("AddURL", mock.Anything, "42", "", "ftp://x/duck.glb").Return(nil, service.ErrInvalidURL).Once()

		resp := post(`{"model_url":"ftp://x/duck.glb"}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_URL", body.Error.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := post(`{`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeleteModel(t *testing.T) {
	mockSvc := new(serviceMocks.MockModelService)
	app := fiber.New()
	app.Delete("/api/models/:id", auth.RequireJWT(testSecret), DeleteModel(mockSvc))

	del := func(id string) *http.Response {
		req := httptest.NewRequest(http.MethodDelete, "/api/models/"+id, nil)
		req.Header.Set("Authorization", bearer(t, "42"))
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, "42", id).Return(nil).Once()

		resp := del(id)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, "42", id).Return(service.ErrNotFound).Once()

		resp := del(id)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp := del("invalid-uuid")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, "42", id).Return(errors.New("delete error")).Once()

		resp := del(id)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

type updateFunc func(ctx context.Context, upd tb.Update) telegram.Response

func (f updateFunc) Handle(ctx context.Context, upd tb.Update) telegram.Response {
	return f(ctx, upd)
}

func TestWebhook(t *testing.T) {
	var got tb.Update
	h := updateFunc(func(_ context.Context, upd tb.Update) telegram.Response {
		got = upd
		return telegram.Response{Status: "ok", Msg: "processed"}
	})

	app := fiber.New()
	app.Post("/webhook", Webhook(h, zap.NewNop()))

	t.Run("dispatches update", func(t *testing.T) {
		body := `{"update_id":7,"message":{"message_id":1,"chat":{"id":99,"type":"private"},"text":"/start"}}`
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var res telegram.Response
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "ok", res.Status)
		assert.Equal(t, 7, got.ID)
		require.NotNil(t, got.Message)
		assert.Equal(t, "/start", got.Message.Text)
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString("nope"))
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_UPDATE", res.Error.Code)
	})
}

func TestTelegramAuth(t *testing.T) {
	const botToken = "123:abc"
	users := new(serviceMocks.MockUserService)
	app := fiber.New()
	app.Post("/telegram_auth", TelegramAuth(users, TelegramAuthConfig{
		BotToken:  botToken,
		JWTSecret: testSecret,
		TokenTTL:  time.Hour,
	}, zap.NewNop()))

	authDate := strconv.FormatInt(time.Now().Unix(), 10)
	signed := map[string]string{"id": "42", "username": "ada", "auth_date": authDate}
	hash := auth.SignLogin(signed, botToken)

	post := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/telegram_auth", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("valid payload with numeric fields", func(t *testing.T) {
		users.On("Register", mock.Anything, "42", "ada").Return(nil).Once()

		resp := post(`{"id":42,"username":"ada","auth_date":` + authDate + `,"hash":"` + hash + `"}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var res tokenResponse
		json.NewDecoder(resp.Body).Decode(&res)
		id, err := auth.ParseToken(res.AccessToken, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "42", id)
		users.AssertExpectations(t)
	})

	t.Run("tampered payload", func(t *testing.T) {
		resp := post(`{"id":43,"username":"ada","auth_date":` + authDate + `,"hash":"` + hash + `"}`)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "UNAUTHORIZED", res.Error.Code)
	})

	t.Run("missing hash", func(t *testing.T) {
		resp := post(`{"id":42,"auth_date":` + authDate + `}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := post(`[1,2]`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("register error", func(t *testing.T) {
		users.On("Register", mock.Anything, "42", "ada").Return(errors.New("db down")).Once()

		resp := post(`{"id":"42","username":"ada","auth_date":"` + authDate + `","hash":"` + hash + `"}`)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		users.AssertExpectations(t)
	})
}

func TestLoginFields(t *testing.T) {
	got, err := loginFields([]byte(`{"id":123456789012,"first_name":"Ada","photo_url":null,"is_bot":false}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "123456789012", "first_name": "Ada", "is_bot": "false"}, got)

	_, err = loginFields([]byte(`{"nested":{"a":1}}`))
	assert.Error(t, err)
}

func TestViewRedirect(t *testing.T) {
	app := fiber.New()
	app.Get("/view", ViewRedirect("https://viewer.example.com/", "https://bot.example.com"))
	noViewer := fiber.New()
	noViewer.Get("/view", ViewRedirect("", "https://bot.example.com"))

	t.Run("model url", func(t *testing.T) {
		q := url.Values{"model": {"https://cdn.example.com/duck.glb"}, "ext": {"glb"}}
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/view?"+q.Encode(), nil))

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "viewer.example.com", loc.Host)
		assert.Equal(t, "https://cdn.example.com/duck.glb", loc.Query().Get("model"))
		assert.Equal(t, "glb", loc.Query().Get("ext"))
	})

	t.Run("uuid only", func(t *testing.T) {
		id := uuid.New().String()
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/view?uuid="+id, nil))

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		loc, _ := url.Parse(resp.Header.Get("Location"))
		assert.Equal(t, "https://bot.example.com/models/"+id, loc.Query().Get("model"))
	})

	t.Run("nothing to show", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/view", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("viewer not configured", func(t *testing.T) {
		resp, _ := noViewer.Test(httptest.NewRequest(http.MethodGet, "/view?uuid="+uuid.NewString(), nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "VIEWER_NOT_CONFIGURED", res.Error.Code)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockModelService)
	// Register all routes
	RegisterRoutes(app, Deps{
		Models:        mockSvc,
		Users:         new(serviceMocks.MockUserService),
		Updates:       updateFunc(func(context.Context, tb.Update) telegram.Response { return telegram.Response{Status: "ok"} }),
		WebhookSecret: "s3cret",
		JWTSecret:     testSecret,
		TokenTTL:      time.Hour,
	})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		// Fiber returns 405 by default if route exists but method doesn't match
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})

	t.Run("api requires token", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/models", nil))

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "UNAUTHORIZED", res.Error.Code)
	})

	t.Run("webhook secret enforced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(`{"update_id":1}`))
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		req = httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(`{"update_id":1}`))
		req.Header.Set(middleware.TelegramSecretHeader, "s3cret")
		resp, _ = app.Test(req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
