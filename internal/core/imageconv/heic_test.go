package imageconv

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records calls and writes png to the last argument.
type fakeRunner struct {
	calls [][]string
	png   []byte
	err   error
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return nil, []byte("boom"), f.err
	}
	return nil, nil, os.WriteFile(args[len(args)-1], f.png, 0o644)
}

func testConverter(tool, cacheDir string, r Runner) *Converter {
	c := NewConverter(tool, cacheDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.Runner = r
	return c
}

func TestIsHEIC(t *testing.T) {
	assert.True(t, IsHEIC(".HEIC"))
	assert.True(t, IsHEIC("heif"))
	assert.False(t, IsHEIC(".png"))
	assert.False(t, IsHEIC(""))
}

func TestEnabled(t *testing.T) {
	var nilConv *Converter
	assert.False(t, nilConv.Enabled())
	assert.False(t, NewConverter("  ", "", nil).Enabled())
	assert.True(t, NewConverter(ToolMagick, "", nil).Enabled())
}

func TestToPNG_Disabled(t *testing.T) {
	_, err := NewConverter("", "", nil).ToPNG(context.Background(), "a.heic", "")
	assert.ErrorIs(t, err, ErrNoConverter)
}

func TestToPNG_UnknownTool(t *testing.T) {
	r := &fakeRunner{}
	_, err := testConverter("ffmpeg", "", r).ToPNG(context.Background(), "a.heic", "")
	assert.ErrorIs(t, err, ErrNoConverter)
	assert.Empty(t, r.calls)
}

func TestToPNG_ToolArgs(t *testing.T) {
	tests := []struct {
		tool string
		args func(out string) []string
	}{
		{tool: ToolMagick, args: func(out string) []string { return []string{ToolMagick, "in.heic", out} }},
		{tool: ToolHeifConvert, args: func(out string) []string { return []string{ToolHeifConvert, "in.heic", out} }},
		{tool: ToolSips, args: func(out string) []string {
			return []string{ToolSips, "-s", "format", "png", "in.heic", "--out", out}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			r := &fakeRunner{png: []byte("png-bytes")}
			b, err := testConverter(tt.tool, "", r).ToPNG(context.Background(), "in.heic", "")
			require.NoError(t, err)
			assert.Equal(t, []byte("png-bytes"), b)
			require.Len(t, r.calls, 1)
			call := r.calls[0]
			assert.Equal(t, tt.args(call[len(call)-1]), call)
			assert.Equal(t, "page.png", filepath.Base(call[len(call)-1]))
		})
	}
}

func TestToPNG_Cache(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{png: []byte("converted")}
	c := testConverter(ToolMagick, dir, r)

	b, err := c.ToPNG(context.Background(), "in.heic", "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, []byte("converted"), b)

	cached, err := os.ReadFile(filepath.Join(dir, "deadbeef.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("converted"), cached)

	b, err = c.ToPNG(context.Background(), "in.heic", "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, []byte("converted"), b)
	assert.Len(t, r.calls, 1, "second call must be served from the cache")
}

func TestToPNG_RunnerError(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1")}
	_, err := testConverter(ToolHeifConvert, "", r).ToPNG(context.Background(), "in.heic", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heif-convert convert failed")
	assert.Contains(t, err.Error(), "boom")
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", tail("abc", 5))
	assert.Equal(t, "...ef", tail("abcdef", 2))
}

func TestExecRunner_MissingTool(t *testing.T) {
	_, _, err := ExecRunner{}.Run(context.Background(), "idcard-no-such-converter", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found on PATH")
}
