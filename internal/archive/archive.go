// Package archive extracts uploaded archives through an ordered cascade of
// backends and picks out the 3D model files they contain.
package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Format is an archive container type inferred from the file extension.
type Format string

const (
	FormatUnknown Format = ""
	FormatZip     Format = "zip"
	FormatRar     Format = "rar"
	Format7z      Format = "7z"
)

// DetectFormat infers the archive format from a filename, case-insensitively.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip":
		return FormatZip
	case ".rar":
		return FormatRar
	case ".7z":
		return Format7z
	default:
		return FormatUnknown
	}
}

// ExtractedFile is a regular file found under an extraction directory.
type ExtractedFile struct {
	// Path is relative to the extraction directory, slash separated.
	Path      string
	Filename  string
	Extension string
}

// Result is the outcome of a successful extraction. The caller owns Dir.
type Result struct {
	Dir     string
	Backend string
	Files   []ExtractedFile
}

// Attempt records one failed backend run.
type Attempt struct {
	Backend string
	Reason  string
	err     error
}

// ExtractError is returned when every backend failed.
type ExtractError struct {
	Attempts []Attempt
}

func (e *ExtractError) Error() string {
	if len(e.Attempts) == 0 {
		return "no extraction backend supports this archive"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Backend+": "+a.Reason)
	}
	return "all extraction methods failed: " + strings.Join(parts, "; ")
}

func (e *ExtractError) Unwrap() []error {
	var errs []error
	for _, a := range e.Attempts {
		if a.err != nil {
			errs = append(errs, a.err)
		}
	}
	return errs
}

// ListFiles walks dir and returns every regular file. File and directory
// names that are not valid UTF-8 are first renamed on disk to
// renamed_file_<uuid><ext> and renamed_dir_<uuid>; entries whose rename
// fails are skipped.
func ListFiles(dir string) ([]ExtractedFile, error) {
	if err := renameInvalid(dir); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	var out []ExtractedFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if !utf8.ValidString(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		out = append(out, ExtractedFile{
			Path:      filepath.ToSlash(rel),
			Filename:  name,
			Extension: strings.ToLower(filepath.Ext(name)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return out, nil
}

// renameInvalid gives every entry under dir whose name is not valid UTF-8 a
// generated name. Entries that cannot be renamed are left in place.
func renameInvalid(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if !utf8.ValidString(e.Name()) {
			renamed := "renamed_dir_" + uuid.NewString()
			if !e.IsDir() {
				renamed = "renamed_file_" + uuid.NewString() + sanitizeExt(filepath.Ext(e.Name()))
			}
			target := filepath.Join(dir, renamed)
			if err := os.Rename(path, target); err != nil {
				continue
			}
			path = target
		}
		if e.IsDir() {
			if err := renameInvalid(path); err != nil {
				return err
			}
		}
	}
	return nil
}

// sanitizeExt keeps an extension only when it is itself valid UTF-8.
func sanitizeExt(ext string) string {
	if utf8.ValidString(ext) {
		return ext
	}
	return ""
}

// Cleanup removes an extraction directory. An empty dir argument is a no-op.
func Cleanup(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}

// emptyDir removes everything under dir while keeping dir itself.
func emptyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
