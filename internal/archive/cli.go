package archive

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// unrarTimeout bounds the proprietary unrar tool, which can hang on damaged input.
const unrarTimeout = 5 * time.Minute

// cliExtractor shells out to an archive tool on PATH.
type cliExtractor struct {
	name    string
	bin     string
	formats []Format
	args    func(src, dst string) []string
	timeout time.Duration
}

func (c *cliExtractor) Name() string { return c.name }

func (c *cliExtractor) Supports(f Format) bool {
	if len(c.formats) == 0 {
		return true
	}
	for _, ff := range c.formats {
		if ff == f {
			return true
		}
	}
	return false
}

func (c *cliExtractor) Extract(ctx context.Context, src, dst string) error {
	path, err := lookPath(c.bin)
	if err != nil {
		return fmt.Errorf("%s not installed", c.bin)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, c.args(src, dst)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", c.bin, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", c.bin, err)
		}
		return fmt.Errorf("%s: %w: %s", c.bin, err, msg)
	}
	return nil
}

var lookPath = exec.LookPath

func sevenZipCLI(timeout time.Duration) *cliExtractor {
	return &cliExtractor{
		name:    "7z",
		bin:     "7z",
		timeout: timeout,
		args: func(src, dst string) []string {
			return []string{"x", "-y", src, "-o" + dst}
		},
	}
}

func unzipCLI(timeout time.Duration) *cliExtractor {
	return &cliExtractor{
		name:    "unzip",
		bin:     "unzip",
		formats: []Format{FormatZip},
		timeout: timeout,
		args: func(src, dst string) []string {
			return []string{"-o", src, "-d", dst}
		},
	}
}

func unrarFreeCLI(timeout time.Duration) *cliExtractor {
	return &cliExtractor{
		name:    "unrar-free",
		bin:     "unrar-free",
		formats: []Format{FormatRar},
		timeout: timeout,
		args: func(src, dst string) []string {
			return []string{"x", src, dst}
		},
	}
}

func unrarCLI() *cliExtractor {
	return &cliExtractor{
		name:    "unrar",
		bin:     "unrar",
		formats: []Format{FormatRar},
		timeout: unrarTimeout,
		args: func(src, dst string) []string {
			return []string{"x", "-y", src, dst + "/"}
		},
	}
}

// ToolStatus reports whether a command-line archive tool is available.
type ToolStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
}

// CheckTools looks up every command-line tool the cascade can use.
func CheckTools() []ToolStatus {
	tools := []string{"7z", "unzip", "unrar", "unrar-free"}
	out := make([]ToolStatus, 0, len(tools))
	for _, t := range tools {
		st := ToolStatus{Name: t}
		if p, err := lookPath(t); err == nil {
			st.Available, st.Path = true, p
		}
		out = append(out, st)
	}
	return out
}
