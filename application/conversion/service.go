package conversion

import (
	"context"
	"fmt"
	"io"

	"upload-ai/domain/video"

	"github.com/google/uuid"
)

// EngineSource supplies the conversion engine
type EngineSource interface {
	Get(ctx context.Context) (video.Engine, error)
}

// Service runs the video-to-audio conversion pipeline
type Service struct {
	engines EngineSource
	output  io.Writer
	newID   func() string
}

// Option is a functional option for configuring Service
type Option func(*Service)

// WithOutput sets the diagnostic stream for lifecycle and progress messages
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.output = w
		}
	}
}

// WithIDGenerator sets the generator for per-call virtual file prefixes (for testing)
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates a new conversion service
func NewService(engines EngineSource, opts ...Option) *Service {
	s := &Service{
		engines: engines,
		output:  io.Discard,
		newID:   uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Convert extracts the audio track of v as a 20 kbit/s MP3.
// Each stage failure is reported as a *video.StageError.
func (s *Service) Convert(ctx context.Context, v *video.SelectedVideo) (*video.ExtractedAudio, error) {
	if v == nil {
		return nil, fmt.Errorf("no video to convert")
	}

	fmt.Fprintln(s.output, "Convert started.")

	engine, err := s.engines.Get(ctx)
	if err != nil {
		return nil, &video.StageError{Stage: video.StageInit, Err: err}
	}

	names := video.NewConversionNames(s.newID())
	defer s.cleanup(ctx, engine, names)

	if err := engine.WriteFile(ctx, names.Input, v.Data); err != nil {
		return nil, &video.StageError{Stage: video.StageWrite, Err: err}
	}

	onProgress := func(p video.Progress) {
		fmt.Fprintf(s.output, "Convert progress: %d\n", p.Percent())
	}

	if err := engine.Exec(ctx, video.ConversionArgs(names), onProgress); err != nil {
		return nil, &video.StageError{Stage: video.StageExec, Err: err}
	}

	data, err := engine.ReadFile(ctx, names.Output)
	if err != nil {
		return nil, &video.StageError{Stage: video.StageRead, Err: err}
	}
	if len(data) == 0 {
		return nil, &video.StageError{Stage: video.StageWrap, Err: fmt.Errorf("engine produced an empty %s", names.Output)}
	}

	audio := video.NewExtractedAudio(data)

	fmt.Fprintln(s.output, "Convert finished.")

	return audio, nil
}

// cleanup removes the call's virtual files even when ctx is already cancelled
func (s *Service) cleanup(ctx context.Context, engine video.Engine, names video.ConversionNames) {
	ctx = context.WithoutCancel(ctx)
	for _, name := range names.Files() {
		if err := engine.DeleteFile(ctx, name); err != nil {
			fmt.Fprintf(s.output, "Warning: could not remove %s: %v\n", name, err)
		}
	}
}
