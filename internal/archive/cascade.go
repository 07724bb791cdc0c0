package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Laisky/zap"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wellb3tz/axiscore/internal/config"
)

const reasonEmpty = "extraction reported success but no files were found"

var errEmpty = errors.New(reasonEmpty)

// Extractor is one extraction backend.
type Extractor interface {
	Name() string
	Supports(Format) bool
	Extract(ctx context.Context, src, dst string) error
}

// Metrics counts backend attempts by outcome.
type Metrics struct {
	attempts *prometheus.CounterVec
}

// NewMetrics registers the archive metrics on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archive_extract_attempts_total",
				Help: "Extraction backend attempts by backend and result.",
			},
			[]string{"backend", "result"},
		),
	}
	if err := reg.Register(m.attempts); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(backend, result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(backend, result).Inc()
}

// Cascade tries extractors in order until one yields files.
type Cascade struct {
	extractors []Extractor
	tempRoot   string
	maxBytes   int64
	logger     *zap.Logger
	metrics    *Metrics
}

// NewCascade builds the default backend order. Library backends come first;
// command-line tools are appended when cfg.UseCLI is set.
func NewCascade(cfg config.ArchiveConfig, logger *zap.Logger, metrics *Metrics) *Cascade {
	limit := cfg.MaxExtractedBytes
	exs := []Extractor{
		zipExtractor{maxBytes: limit},
		rarExtractor{maxBytes: limit},
		sevenZipExtractor{maxBytes: limit},
		universalExtractor{maxBytes: limit},
	}
	if cfg.UseCLI {
		exs = append(exs,
			unzipCLI(cfg.CLITimeout),
			sevenZipCLI(cfg.CLITimeout),
			unrarFreeCLI(cfg.CLITimeout),
			unrarCLI(),
		)
	}
	return NewCascadeWith(cfg.TempDir, logger, metrics, exs...).WithMaxBytes(limit)
}

// NewCascadeWith builds a cascade over explicit extractors.
func NewCascadeWith(tempRoot string, logger *zap.Logger, metrics *Metrics, exs ...Extractor) *Cascade {
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{extractors: exs, tempRoot: tempRoot, logger: logger, metrics: metrics}
}

// WithMaxBytes rejects any extraction whose files total more than n bytes.
// Zero disables the check.
func (c *Cascade) WithMaxBytes(n int64) *Cascade {
	c.maxBytes = n
	return c
}

// Backends returns the extractor names that would run for format f, in order.
func (c *Cascade) Backends(f Format) []string {
	var out []string
	for _, ex := range c.extractors {
		if ex.Supports(f) {
			out = append(out, ex.Name())
		}
	}
	return out
}

// Extract unpacks the archive at path into a fresh temp directory.
// On failure the directory is removed and an *ExtractError is returned.
func (c *Cascade) Extract(ctx context.Context, path string) (*Result, error) {
	dir := filepath.Join(c.tempRoot, "axiscore_extract_"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create extraction dir: %w", err)
	}

	format := DetectFormat(path)
	exErr := &ExtractError{}
	for _, ex := range c.extractors {
		if !ex.Supports(format) {
			continue
		}
		if err := ctx.Err(); err != nil {
			_ = Cleanup(dir)
			return nil, err
		}
		if err := emptyDir(dir); err != nil {
			_ = Cleanup(dir)
			return nil, fmt.Errorf("reset extraction dir: %w", err)
		}

		start := time.Now()
		files, err := c.try(ctx, ex, path, dir)
		if err == nil {
			c.metrics.observe(ex.Name(), "success")
			c.logger.Info("archive_extracted",
				zap.String("backend", ex.Name()),
				zap.String("format", string(format)),
				zap.Int("files", len(files)),
				zap.Duration("took", time.Since(start)),
			)
			return &Result{Dir: dir, Backend: ex.Name(), Files: files}, nil
		}

		c.metrics.observe(ex.Name(), "failure")
		c.logger.Warn("archive_backend_failed",
			zap.String("backend", ex.Name()),
			zap.String("format", string(format)),
			zap.Error(err),
		)
		exErr.Attempts = append(exErr.Attempts, Attempt{Backend: ex.Name(), Reason: err.Error(), err: err})
		if errors.Is(err, ErrTooLarge) {
			// every other backend would inflate the same content
			break
		}
	}

	_ = Cleanup(dir)
	return nil, exErr
}

// try runs one backend.
func (c *Cascade) try(ctx context.Context, ex Extractor, src, dir string) (files []ExtractedFile, err error) {
	defer func() {
		if r := recover(); r != nil {
			files, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ex.Extract(ctx, src, dir); err != nil {
		return nil, err
	}
	if c.maxBytes > 0 {
		total, err := dirSize(dir)
		if err != nil {
			return nil, err
		}
		if total > c.maxBytes {
			return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, c.maxBytes)
		}
	}
	files, err = ListFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errEmpty
	}
	return files, nil
}

// dirSize sums the sizes of the regular files under dir.
func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
