package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Laisky/zap"

	"github.com/wellb3tz/axiscore/internal/archive"
	"github.com/wellb3tz/axiscore/internal/guard"
	"github.com/wellb3tz/axiscore/internal/logging"
	"github.com/wellb3tz/axiscore/internal/model"
	"github.com/wellb3tz/axiscore/internal/repository"
)

// Status is the terminal state of one upload.
type Status string

const (
	StatusProcessed        Status = "processed"
	StatusStopped          Status = "stopped"
	StatusPreviouslyFailed Status = "previously_failed"
	StatusDuplicate        Status = "duplicate"
	StatusFailed           Status = "failed"
	StatusIgnored          Status = "ignored"
)

const (
	MsgDisabled    = "Processing is currently disabled. Please try again later."
	MsgDuplicate   = "This file is already being processed."
	MsgUnsupported = "Please send a 3D model (.glb, .gltf, .fbx, .obj) or an archive (.zip, .rar, .7z)."
	MsgTooLarge    = "The file is too large. Telegram bots can download files up to 20 MB."
	MsgDownload    = "Could not download the file from Telegram. Please try again."
	MsgExtract     = "Could not extract the archive. Supported formats are zip, rar and 7z."
	MsgNoModels    = "No 3D model files were found in the archive."
	MsgSave        = "Could not save the model. Please try again later."
)

var ErrFileIDRequired = errors.New("file id is required")

// maxRecordedError bounds the error text kept in a FailureRecord.
const maxRecordedError = 500

// Downloader fetches a Telegram file by id.
type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Extractor unpacks an archive file into a directory owned by the caller.
type Extractor interface {
	Extract(ctx context.Context, path string) (*archive.Result, error)
}

// Upload is a document received from a chat.
type Upload struct {
	FileID     string
	Filename   string
	MIMEType   string
	Size       int64
	TelegramID string
}

// Outcome is what the chat layer reports back to the user.
type Outcome struct {
	Status  Status
	Message string
	Models  []*model.StoredModel
	// Skipped counts models beyond the per-archive limit.
	Skipped int
}

// ProcessorConfig holds the pipeline limits.
type ProcessorConfig struct {
	MaxFileSize int64
	MaxModels   int
	TempDir     string
}

// Processor runs an upload through admission, download, extraction and storage.
type Processor struct {
	models     ModelService
	failures   repository.FailureRepository
	inflight   guard.InFlight
	breaker    *guard.Breaker
	extractor  Extractor
	downloader Downloader
	cfg        ProcessorConfig
	logger     *zap.Logger
}

// NewProcessor wires the pipeline.
func NewProcessor(
	models ModelService,
	failures repository.FailureRepository,
	inflight guard.InFlight,
	breaker *guard.Breaker,
	extractor Extractor,
	downloader Downloader,
	cfg ProcessorConfig,
	logger *zap.Logger,
) *Processor {
	if cfg.MaxModels <= 0 {
		cfg.MaxModels = 10
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		models:     models,
		failures:   failures,
		inflight:   inflight,
		breaker:    breaker,
		extractor:  extractor,
		downloader: downloader,
		cfg:        cfg,
		logger:     logger,
	}
}

// HandleDocument processes one upload and never returns an error: every
// failure is folded into the Outcome.
func (p *Processor) HandleDocument(ctx context.Context, up Upload) Outcome {
	log := p.logger.With(
		zap.String("request_id", logging.RequestID(ctx)),
		zap.String("file_id", up.FileID),
		zap.String("filename", up.Filename),
		zap.String("telegram_id", up.TelegramID),
	)

	if p.breaker.Active() {
		return Outcome{Status: StatusStopped, Message: MsgDisabled}
	}

	rec, err := p.failures.Find(ctx, up.FileID)
	switch {
	case err == nil:
		return Outcome{
			Status:  StatusPreviouslyFailed,
			Message: "Archive previously failed: " + rec.Error,
		}
	case !errors.Is(err, sql.ErrNoRows):
		log.Warn("failure_lookup_failed", zap.Error(err))
	}

	isModel, isArchive := archive.IsModelFile(up.Filename), archive.IsArchiveFile(up.Filename)
	if !isModel && !isArchive {
		return Outcome{Status: StatusIgnored, Message: MsgUnsupported}
	}

	token, ok, err := p.inflight.Acquire(ctx, up.FileID)
	if err != nil {
		// admission store unavailable: process without dedup
		log.Warn("inflight_acquire_failed", zap.Error(err))
	} else if !ok {
		return Outcome{Status: StatusDuplicate, Message: MsgDuplicate}
	} else {
		defer func() {
			if err := p.inflight.Release(context.WithoutCancel(ctx), up.FileID, token); err != nil {
				log.Warn("inflight_release_failed", zap.Error(err))
			}
		}()
	}

	if p.cfg.MaxFileSize > 0 && up.Size > p.cfg.MaxFileSize {
		return Outcome{Status: StatusFailed, Message: MsgTooLarge}
	}

	start := time.Now()
	data, err := p.downloader.Download(ctx, up.FileID)
	if err != nil {
		log.Error("download_failed", zap.Error(err))
		return Outcome{Status: StatusFailed, Message: MsgDownload}
	}

	var out Outcome
	if isModel {
		out = p.saveModel(ctx, log, up, data)
	} else {
		out = p.processArchive(ctx, log, up, data)
	}
	log.Info("upload_processed",
		zap.String("status", string(out.Status)),
		zap.Int("models", len(out.Models)),
		zap.Duration("took", time.Since(start)),
	)
	return out
}

func (p *Processor) saveModel(ctx context.Context, log *zap.Logger, up Upload, data []byte) Outcome {
	m, err := p.models.Save(ctx, SaveInput{
		Content:    data,
		Filename:   up.Filename,
		MIMEType:   up.MIMEType,
		TelegramID: up.TelegramID,
		Size:       int64(len(data)),
	})
	if err != nil {
		log.Error("model_save_failed", zap.Error(err))
		return Outcome{Status: StatusFailed, Message: MsgSave}
	}
	return Outcome{Status: StatusProcessed, Message: "Your model is ready.", Models: []*model.StoredModel{m}}
}

func (p *Processor) processArchive(ctx context.Context, log *zap.Logger, up Upload, data []byte) Outcome {
	src, err := p.writeTemp(up.Filename, data)
	if err != nil {
		log.Error("archive_write_failed", zap.Error(err))
		return Outcome{Status: StatusFailed, Message: MsgExtract}
	}
	defer os.Remove(src)

	res, err := p.extractor.Extract(ctx, src)
	if err != nil {
		log.Warn("archive_extract_failed", zap.Error(err))
		p.recordFailure(ctx, log, up, err.Error())
		return Outcome{Status: StatusFailed, Message: MsgExtract}
	}
	defer func() {
		if err := archive.Cleanup(res.Dir); err != nil {
			log.Warn("archive_cleanup_failed", zap.String("dir", res.Dir), zap.Error(err))
		}
	}()

	found := archive.FindModelFiles(res.Files)
	if len(found) == 0 {
		p.recordFailure(ctx, log, up, "no model files found in archive")
		return Outcome{Status: StatusFailed, Message: MsgNoModels}
	}

	out := Outcome{Status: StatusProcessed}
	if len(found) > p.cfg.MaxModels {
		out.Skipped = len(found) - p.cfg.MaxModels
		found = found[:p.cfg.MaxModels]
	}
	for _, f := range found {
		content, err := os.ReadFile(filepath.Join(res.Dir, filepath.FromSlash(f.Path)))
		if err != nil {
			log.Warn("extracted_file_read_failed", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		m, err := p.models.Save(ctx, SaveInput{
			Content:    content,
			Filename:   f.Filename,
			TelegramID: up.TelegramID,
			Size:       int64(len(content)),
		})
		if err != nil {
			log.Error("model_save_failed", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		out.Models = append(out.Models, m)
	}
	if len(out.Models) == 0 {
		return Outcome{Status: StatusFailed, Message: MsgSave}
	}

	out.Message = fmt.Sprintf("Found %d model(s) in %s.", len(out.Models), up.Filename)
	if out.Skipped > 0 {
		out.Message += fmt.Sprintf(" %d more were skipped (limit %d per archive).", out.Skipped, p.cfg.MaxModels)
	}
	return out
}

func (p *Processor) writeTemp(filename string, data []byte) (string, error) {
	f, err := os.CreateTemp(p.cfg.TempDir, "axiscore_upload_*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (p *Processor) recordFailure(ctx context.Context, log *zap.Logger, up Upload, reason string) {
	if len(reason) > maxRecordedError {
		reason = reason[:maxRecordedError]
	}
	err := p.failures.Create(ctx, &model.FailureRecord{
		FileID:     up.FileID,
		Filename:   up.Filename,
		Error:      reason,
		TelegramID: up.TelegramID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Error("failure_record_failed", zap.Error(err))
	}
}

// ClearFailure forgets a recorded failure so the file can be retried.
func (p *Processor) ClearFailure(ctx context.Context, fileID string) error {
	if fileID == "" {
		return ErrFileIDRequired
	}
	return p.failures.Delete(ctx, fileID)
}
