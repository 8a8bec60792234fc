// Package imageconv turns phone photos the vision endpoint cannot read (HEIC/HEIF) into PNG
// using an external converter.
package imageconv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Supported converter tools.
const (
	ToolMagick      = "magick"
	ToolHeifConvert = "heif-convert"
	ToolSips        = "sips"
)

// ErrNoConverter is returned when a HEIC file arrives and no tool is configured.
var ErrNoConverter = errors.New("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")

// IsHEIC reports whether ext (with or without dot) is a HEIC/HEIF extension.
func IsHEIC(ext string) bool {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "heic", "heif":
		return true
	}
	return false
}

// Converter converts HEIC/HEIF files to PNG. A zero Tool disables conversion.
type Converter struct {
	Tool     string
	CacheDir string // optional; converted files are kept as {CacheDir}/{hash}.png
	Runner   Runner
	Logger   *slog.Logger
}

func NewConverter(tool, cacheDir string, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{Tool: strings.TrimSpace(tool), CacheDir: cacheDir, Runner: ExecRunner{}, Logger: logger}
}

// Enabled reports whether a converter tool is configured.
func (c *Converter) Enabled() bool {
	return c != nil && c.Tool != ""
}

// ToPNG converts in and returns the PNG bytes. hashHex keys the cache and may be empty.
func (c *Converter) ToPNG(ctx context.Context, in, hashHex string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrNoConverter
	}
	cached := ""
	if c.CacheDir != "" && hashHex != "" {
		cached = filepath.Join(c.CacheDir, hashHex+".png")
		if b, err := os.ReadFile(cached); err == nil {
			c.Logger.Debug("using cached heic->png", "cache", cached)
			return b, nil
		}
	}

	tmpDir, err := os.MkdirTemp("", "idcard-heic-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	out := filepath.Join(tmpDir, "page.png")

	var args []string
	switch c.Tool {
	case ToolHeifConvert, ToolMagick:
		args = []string{in, out}
	case ToolSips:
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return nil, fmt.Errorf("%w (got %q)", ErrNoConverter, c.Tool)
	}
	if _, errb, err := c.runner().Run(ctx, c.Tool, c.Logger, args...); err != nil {
		return nil, fmt.Errorf("%s convert failed: %w: %s", c.Tool, err, strings.TrimSpace(string(errb)))
	}

	b, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}

	if cached != "" {
		if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
			c.Logger.Warn("heic cache dir", "dir", c.CacheDir, "error", err)
		} else if err := os.WriteFile(cached, b, 0o644); err != nil {
			c.Logger.Warn("heic cache write", "cache", cached, "error", err)
		} else {
			c.Logger.Debug("cached heic->png", "cache", cached)
		}
	}
	return b, nil
}

func (c *Converter) runner() Runner {
	if c.Runner == nil {
		return ExecRunner{}
	}
	return c.Runner
}
