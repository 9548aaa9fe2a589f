package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"upload-ai/domain/video"
)

// stderrLimit bounds how much ffmpeg stderr is kept for error messages
const stderrLimit = 4096

// Engine implements video.Engine using the ffmpeg and ffprobe executables.
// Its virtual filesystem is a private temporary directory.
type Engine struct {
	ffmpegPath  string
	ffprobePath string
	runner      CommandRunner
	baseDir     string

	mu     sync.RWMutex
	dir    string
	closed bool
}

// EngineOption is a functional option for configuring Engine
type EngineOption func(*Engine)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) EngineOption {
	return func(e *Engine) {
		if path != "" {
			e.ffmpegPath = path
		}
	}
}

// WithFFprobePath sets a custom ffprobe executable path
func WithFFprobePath(path string) EngineOption {
	return func(e *Engine) {
		if path != "" {
			e.ffprobePath = path
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) EngineOption {
	return func(e *Engine) {
		e.runner = runner
	}
}

// WithWorkDir sets the parent directory for the virtual filesystem
func WithWorkDir(dir string) EngineOption {
	return func(e *Engine) {
		e.baseDir = dir
	}
}

// NewEngine verifies ffmpeg is available and creates the virtual filesystem
func NewEngine(ctx context.Context, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.VerifyInstalled(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", video.ErrEngineInit, err)
	}

	if e.baseDir != "" {
		if err := os.MkdirAll(e.baseDir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: failed to create work directory: %v", video.ErrEngineInit, err)
		}
	}

	dir, err := os.MkdirTemp(e.baseDir, "upload-ai-vfs-")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create virtual filesystem: %v", video.ErrEngineInit, err)
	}
	e.dir = dir

	return e, nil
}

// VerifyInstalled checks that ffmpeg is available
func (e *Engine) VerifyInstalled(ctx context.Context) error {
	_, err := e.runner.Output(ctx, e.ffmpegPath, "-version")
	if err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// Dir returns the directory backing the virtual filesystem
func (e *Engine) Dir() string {
	return e.dir
}

// WriteFile implements video.Engine
func (e *Engine) WriteFile(ctx context.Context, name string, data []byte) error {
	path, err := e.path(ctx, name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// ReadFile implements video.Engine
func (e *Engine) ReadFile(ctx context.Context, name string) ([]byte, error) {
	path, err := e.path(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", video.ErrFileNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// DeleteFile implements video.Engine
func (e *Engine) DeleteFile(ctx context.Context, name string) error {
	path, err := e.path(ctx, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// Exec implements video.Engine
func (e *Engine) Exec(ctx context.Context, args []string, onProgress video.ProgressFunc) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return video.ErrEngineClosed
	}

	var total time.Duration
	if input := inputName(args); input != "" && onProgress != nil {
		// Without a duration only completion can be reported
		total, _ = e.probeDuration(ctx, filepath.Join(e.dir, input))
	}

	tracker := NewProgressTracker(total, onProgress)
	stderr := &tailBuffer{limit: stderrLimit}

	fullArgs := append([]string{
		"-hide_banner",
		"-nostdin",
		"-nostats",
		"-y", // Overwrite output file if it exists
		"-progress", "pipe:1",
	}, args...)

	err := e.runner.Run(ctx, Command{
		Name:   e.ffmpegPath,
		Args:   fullArgs,
		Dir:    e.dir,
		Stdout: tracker,
		Stderr: stderr,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg audio extraction cancelled: %w", ctxErr)
		}
		if isMissingStream(stderr.String()) {
			return fmt.Errorf("ffmpeg audio extraction failed: %w (%w)", video.ErrNoAudioStream, err)
		}
		return fmt.Errorf("ffmpeg audio extraction failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// Close removes the virtual filesystem
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if err := os.RemoveAll(e.dir); err != nil {
		return fmt.Errorf("failed to remove virtual filesystem: %w", err)
	}
	return nil
}

func (e *Engine) path(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := video.ValidateName(name); err != nil {
		return "", err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return "", video.ErrEngineClosed
	}
	return filepath.Join(e.dir, name), nil
}

func (e *Engine) probeDuration(ctx context.Context, path string) (time.Duration, error) {
	out, err := e.runner.Output(ctx, e.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return ParseDuration(string(out))
}

// inputName returns the argument following the first -i flag
func inputName(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-i" {
			return args[i+1]
		}
	}
	return ""
}

func isMissingStream(stderr string) bool {
	return strings.Contains(stderr, "matches no streams") ||
		strings.Contains(stderr, "does not contain any stream")
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p)
	if over := b.buf.Len() - b.limit; over > 0 {
		b.buf.Next(over)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Ensure Engine implements video.Engine
var _ video.Engine = (*Engine)(nil)
