package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wellb3tz/axiscore/internal/archive"
	"github.com/wellb3tz/axiscore/internal/model"
	"github.com/wellb3tz/axiscore/internal/repository"
	"github.com/wellb3tz/axiscore/internal/storage"
)

// InlineThreshold is the largest content size kept in the models row itself.
const InlineThreshold = 1 << 20

var (
	ErrEmptyContent   = errors.New("content is empty")
	ErrNotFound       = errors.New("model not found")
	ErrInvalidLocator = errors.New("no model id in locator")
	ErrDecode         = errors.New("decode error")
	ErrInvalidURL     = errors.New("url must be http or https")
	ErrOwnerRequired  = errors.New("owner is required")
	ErrSizeMismatch   = errors.New("content size does not match declared size")
)

var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// SaveInput is one model file to persist. Size, when positive, must equal
// len(Content).
type SaveInput struct {
	Content    []byte
	Filename   string
	MIMEType   string
	TelegramID string
	Size       int64
}

// Content is resolved model bytes ready to serve.
type Content struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ModelListResult is the service-level DTO for paginated models.
type ModelListResult struct {
	Items []model.StoredModel `json:"data"`
	Total int                 `json:"total"`
}

// ModelService defines the use cases for stored models.
type ModelService interface {
	// Save persists content under a fresh id. Content up to InlineThreshold is
	// kept in the row; larger content goes to the side store, which is rolled
	// back if the row cannot be written.
	Save(ctx context.Context, in SaveInput) (*model.StoredModel, error)

	// Resolve finds the model id in fragment and returns its bytes.
	// filename, when set, overrides the stored name for content-type inference.
	Resolve(ctx context.Context, fragment, filename string) (*Content, error)

	// ListForUser returns an owner's models newest first, without content.
	ListForUser(ctx context.Context, telegramID string, limit, offset int) (*ModelListResult, error)

	// AddURL records an externally hosted model.
	AddURL(ctx context.Context, telegramID, name, rawURL string) (*model.StoredModel, error)

	// Delete removes an owner's model and its side-store object.
	Delete(ctx context.Context, telegramID, id string) error
}

// ModelServiceConfig carries the settings the service needs from AppConfig.
type ModelServiceConfig struct {
	BaseURL        string
	DefaultOwnerID string
}

type modelService struct {
	store storage.Storage
	repo  repository.ModelRepository
	cfg   ModelServiceConfig
	now   func() time.Time
}

// NewModelService constructs a new ModelService.
func NewModelService(store storage.Storage, repo repository.ModelRepository, cfg ModelServiceConfig) ModelService {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &modelService{store: store, repo: repo, cfg: cfg, now: time.Now}
}

// modelFilename applies the fallback name for missing or extension-less filenames.
func modelFilename(name, mimeType string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || path.Ext(name) == "" {
		if strings.Contains(strings.ToLower(mimeType), "fbx") {
			return "model.fbx"
		}
		return "model.glb"
	}
	return name
}

// Locator returns the retrieval path for a model.
func Locator(id, filename string) string {
	return "/models/" + id + "/" + url.PathEscape(filename)
}

func (s *modelService) owner(telegramID string) string {
	if telegramID == "" {
		return s.cfg.DefaultOwnerID
	}
	return telegramID
}

func (s *modelService) Save(ctx context.Context, in SaveInput) (*model.StoredModel, error) {
	if len(in.Content) == 0 {
		return nil, ErrEmptyContent
	}
	if in.Size > 0 && in.Size != int64(len(in.Content)) {
		return nil, fmt.Errorf("%w: declared %d, got %d", ErrSizeMismatch, in.Size, len(in.Content))
	}
	owner := s.owner(in.TelegramID)
	if owner == "" {
		return nil, ErrOwnerRequired
	}

	id := uuid.NewString()
	filename := modelFilename(in.Filename, in.MIMEType)
	size := int64(len(in.Content))
	m := &model.StoredModel{
		ID:          id,
		TelegramID:  owner,
		Name:        filename,
		URL:         s.cfg.BaseURL + Locator(id, filename),
		Size:        size,
		ContentType: archive.ContentTypeFor(filename),
		CreatedAt:   s.now().UTC(),
	}

	if size <= InlineThreshold {
		m.Content = in.Content
		stored, err := s.repo.Create(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("db save failed: %w", err)
		}
		return stored, nil
	}

	key := "models/" + id + "/" + filename
	if _, err := s.store.Put(ctx, key, bytes.NewReader(in.Content), storage.PutObjectOptions{
		Size:        size,
		ContentType: m.ContentType,
		Metadata:    map[string]string{"original-filename": filename},
	}); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	m.StorageKey = key

	stored, err := s.repo.Create(ctx, m)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *modelService) find(ctx context.Context, id string) (*model.StoredModel, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *modelService) Resolve(ctx context.Context, fragment, filename string) (*Content, error) {
	id := uuidPattern.FindString(fragment)
	if id == "" {
		return nil, ErrInvalidLocator
	}
	m, err := s.find(ctx, strings.ToLower(id))
	if err != nil {
		return nil, err
	}

	var data []byte
	switch {
	case m.Inline():
		data = m.Content
	case m.StorageKey != "":
		rc, _, err := s.store.Get(ctx, m.StorageKey)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("read storage: %w", err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil, fmt.Errorf("read storage: %w", err)
		}
		data = buf.Bytes()
	default:
		// registered by URL only
		return nil, ErrNotFound
	}

	if m.ContentEncoding == model.EncodingBase64 {
		decoded, err := base64.StdEncoding.DecodeString(string(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		data = decoded
	}

	name := m.Name
	if filename != "" {
		name = filename
	}
	return &Content{Data: data, ContentType: archive.ContentTypeFor(name), Filename: name}, nil
}

func (s *modelService) ListForUser(ctx context.Context, telegramID string, limit, offset int) (*ModelListResult, error) {
	if telegramID == "" {
		return nil, ErrOwnerRequired
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.repo.ListByOwner(ctx, telegramID, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &ModelListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *modelService) AddURL(ctx context.Context, telegramID, name, rawURL string) (*model.StoredModel, error) {
	owner := s.owner(telegramID)
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	if name == "" {
		name = path.Base(u.Path)
	}
	m := &model.StoredModel{
		ID:          uuid.NewString(),
		TelegramID:  owner,
		Name:        modelFilename(name, ""),
		URL:         u.String(),
		ContentType: archive.ContentTypeFor(u.Path),
		CreatedAt:   s.now().UTC(),
	}
	stored, err := s.repo.Create(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

// Delete removes the side-store object first so a failure leaves the row
// pointing at content that still exists.
func (s *modelService) Delete(ctx context.Context, telegramID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidLocator
	}
	m, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if m.TelegramID != telegramID {
		return ErrNotFound
	}
	if m.StorageKey != "" {
		if err := s.store.Delete(ctx, m.StorageKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("delete storage: %w", err)
		}
	}
	return s.repo.Delete(ctx, id)
}
