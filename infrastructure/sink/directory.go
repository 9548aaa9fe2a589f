package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"upload-ai/domain/video"

	"github.com/google/uuid"
)

// Directory implements video.AudioSink by saving audio into a local directory
type Directory struct {
	dir      string
	filename string
	newID    func() string
	output   io.Writer
}

// DirectoryOption is a functional option for configuring Directory
type DirectoryOption func(*Directory)

// WithFilename saves every delivery under one fixed name. Later deliveries
// replace earlier ones. The default is a unique "<id>-output.mp3" per delivery.
func WithFilename(name string) DirectoryOption {
	return func(d *Directory) {
		d.filename = name
	}
}

// WithIDGenerator overrides how per-delivery name prefixes are generated
func WithIDGenerator(fn func() string) DirectoryOption {
	return func(d *Directory) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// WithDirectoryOutput sets where saved paths are reported
func WithDirectoryOutput(w io.Writer) DirectoryOption {
	return func(d *Directory) {
		if w != nil {
			d.output = w
		}
	}
}

// NewDirectory creates a sink that writes into dir
func NewDirectory(dir string, opts ...DirectoryOption) *Directory {
	d := &Directory{
		dir:    dir,
		newID:  uuid.NewString,
		output: io.Discard,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// OutputPath returns where the next delivery of audio will be written
func (d *Directory) OutputPath(audio *video.ExtractedAudio) string {
	name := d.filename
	if name == "" {
		name = audio.UniqueName(d.newID())
	}
	return filepath.Join(d.dir, filepath.Base(name))
}

// Consume implements video.AudioSink
func (d *Directory) Consume(ctx context.Context, audio *video.ExtractedAudio, prompt video.TranscriptionPrompt) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := d.OutputPath(audio)
	if err := writeAtomic(path, audio.Data); err != nil {
		return fmt.Errorf("failed to save audio: %w", err)
	}

	fmt.Fprintf(d.output, "Saved: %s\n", path)
	return nil
}

// writeAtomic writes to a temp file in the same directory and renames it
// into place, so readers never see a partial file
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-ai-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Ensure Directory implements video.AudioSink
var _ video.AudioSink = (*Directory)(nil)
