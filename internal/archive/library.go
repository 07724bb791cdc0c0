package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/mholt/archives"
	"github.com/nwaples/rardecode/v2"
)

var (
	// ErrUnsafePath is returned for an entry that would be written outside
	// the extraction directory.
	ErrUnsafePath = errors.New("entry escapes extraction directory")
	// ErrTooLarge is returned once extracted content passes the size limit.
	ErrTooLarge = errors.New("extracted content exceeds size limit")
)

// budget caps the bytes written by one extraction. A zero limit disables it.
type budget struct {
	limit   int64
	written int64
}

func newBudget(limit int64) *budget { return &budget{limit: limit} }

// copy streams r into w and stops once the running total passes the limit.
func (b *budget) copy(w io.Writer, r io.Reader) error {
	if b == nil || b.limit <= 0 {
		_, err := io.Copy(w, r)
		return err
	}
	n, err := io.Copy(w, io.LimitReader(r, b.limit-b.written+1))
	b.written += n
	if err != nil {
		return err
	}
	if b.written > b.limit {
		return fmt.Errorf("%w (%d bytes)", ErrTooLarge, b.limit)
	}
	return nil
}

// safeJoin resolves an archive entry name under dst.
func safeJoin(dst, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	target := filepath.Join(dst, filepath.FromSlash(name))
	rel, err := filepath.Rel(dst, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return target, nil
}

// writeEntry copies one archive entry to disk, charging it against b.
func writeEntry(ctx context.Context, dst, name string, r io.Reader, b *budget) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := safeJoin(dst, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := b.copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func skipMode(mode fs.FileMode) bool {
	return mode.IsDir() || mode&fs.ModeSymlink != 0
}

// zipExtractor uses archive/zip.
type zipExtractor struct {
	maxBytes int64
}

func (zipExtractor) Name() string           { return "zip" }
func (zipExtractor) Supports(f Format) bool { return f == FormatZip }
func (e zipExtractor) Extract(ctx context.Context, src, dst string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer zr.Close()

	b := newBudget(e.maxBytes)
	for _, f := range zr.File {
		if skipMode(f.Mode()) || strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		err = writeEntry(ctx, dst, f.Name, rc, b)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// rarExtractor uses nwaples/rardecode.
type rarExtractor struct {
	maxBytes int64
}

func (rarExtractor) Name() string           { return "rardecode" }
func (rarExtractor) Supports(f Format) bool { return f == FormatRar }
func (e rarExtractor) Extract(ctx context.Context, src, dst string) error {
	rc, err := rardecode.OpenReader(src)
	if err != nil {
		return err
	}
	defer rc.Close()

	b := newBudget(e.maxBytes)
	for {
		hdr, err := rc.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.IsDir || skipMode(hdr.Mode()) {
			continue
		}
		if err := writeEntry(ctx, dst, hdr.Name, rc, b); err != nil {
			return err
		}
	}
}

// sevenZipExtractor uses bodgit/sevenzip.
type sevenZipExtractor struct {
	maxBytes int64
}

func (sevenZipExtractor) Name() string           { return "sevenzip" }
func (sevenZipExtractor) Supports(f Format) bool { return f == Format7z }
func (e sevenZipExtractor) Extract(ctx context.Context, src, dst string) error {
	r, err := sevenzip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	b := newBudget(e.maxBytes)
	for _, f := range r.File {
		if skipMode(f.FileInfo().Mode()) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		err = writeEntry(ctx, dst, f.Name, rc, b)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// universalExtractor identifies the container by content with mholt/archives.
type universalExtractor struct {
	maxBytes int64
}

func (universalExtractor) Name() string         { return "archives" }
func (universalExtractor) Supports(Format) bool { return true }
func (e universalExtractor) Extract(ctx context.Context, src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	format, stream, err := archives.Identify(ctx, filepath.Base(src), f)
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	ex, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("format %s cannot be extracted", format.Extension())
	}
	b := newBudget(e.maxBytes)
	return ex.Extract(ctx, stream, func(ctx context.Context, info archives.FileInfo) error {
		if skipMode(info.Mode()) || info.LinkTarget != "" {
			return nil
		}
		rc, err := info.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", info.NameInArchive, err)
		}
		defer rc.Close()
		return writeEntry(ctx, dst, info.NameInArchive, rc, b)
	})
}
