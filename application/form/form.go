package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"upload-ai/domain/video"
)

// ErrFormClosed is returned when a form is used after Close
var ErrFormClosed = errors.New("form is closed")

// Converter turns a selected video into audio
type Converter interface {
	Convert(ctx context.Context, v *video.SelectedVideo) (*video.ExtractedAudio, error)
}

// SubmitResult contains the outcome of a successful submit
type SubmitResult struct {
	Video  string
	Audio  *video.ExtractedAudio
	Prompt video.TranscriptionPrompt
}

// VideoInputForm holds at most one selected video and converts it to audio on
// submit. Submits on one form run one at a time.
type VideoInputForm struct {
	converter Converter
	previewer video.Previewer
	sink      video.AudioSink
	output    io.Writer

	submitMu sync.Mutex

	mu         sync.Mutex
	selected   *video.SelectedVideo
	previewURL string
	state      video.FormState
	closed     bool
}

// Option is a functional option for configuring VideoInputForm
type Option func(*VideoInputForm)

// WithPreviewer sets the preview URL provider
func WithPreviewer(p video.Previewer) Option {
	return func(f *VideoInputForm) {
		f.previewer = p
	}
}

// WithSink sets where converted audio is delivered
func WithSink(s video.AudioSink) Option {
	return func(f *VideoInputForm) {
		f.sink = s
	}
}

// WithOutput sets the diagnostic stream
func WithOutput(w io.Writer) Option {
	return func(f *VideoInputForm) {
		if w != nil {
			f.output = w
		}
	}
}

// New creates an idle form
func New(converter Converter, opts ...Option) *VideoInputForm {
	f := &VideoInputForm{
		converter: converter,
		output:    io.Discard,
		state:     video.StateIdle,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// SelectFile keeps the first entry of files, replacing any previous selection.
// An empty list leaves the current selection untouched.
func (f *VideoInputForm) SelectFile(files []*video.SelectedVideo) error {
	if len(files) == 0 || files[0] == nil {
		return nil
	}
	selected := files[0]

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFormClosed
	}

	var url string
	if f.previewer != nil {
		var err error
		url, err = f.previewer.Create(selected)
		if err != nil {
			return fmt.Errorf("failed to create preview: %w", err)
		}
		if f.previewURL != "" {
			f.previewer.Revoke(f.previewURL)
		}
	}

	f.selected = selected
	f.previewURL = url
	f.state = video.StateVideoSelected
	return nil
}

// Submit converts the selected video to audio and delivers it with prompt.
// It returns (nil, nil) without converting when no video is selected.
func (f *VideoInputForm) Submit(ctx context.Context, prompt video.TranscriptionPrompt) (*SubmitResult, error) {
	f.submitMu.Lock()
	defer f.submitMu.Unlock()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFormClosed
	}
	selected := f.selected
	if selected == nil {
		f.mu.Unlock()
		return nil, nil
	}
	f.state = video.StateConverting
	f.mu.Unlock()

	audio, err := f.converter.Convert(ctx, selected)
	if err != nil {
		f.finish(selected, video.StateVideoSelected)
		return nil, err
	}

	fmt.Fprintln(f.output, audio)

	if f.sink != nil {
		if err := f.sink.Consume(ctx, audio, prompt); err != nil {
			f.finish(selected, video.StateVideoSelected)
			return nil, fmt.Errorf("failed to deliver audio: %w", err)
		}
	}

	f.finish(selected, video.StateConverted)

	return &SubmitResult{
		Video:  selected.Name,
		Audio:  audio,
		Prompt: prompt,
	}, nil
}

// finish moves to state unless the selection changed during the submit
func (f *VideoInputForm) finish(submitted *video.SelectedVideo, state video.FormState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.selected != submitted {
		return
	}
	f.state = state
}

// Selected returns the currently selected video, or nil
func (f *VideoInputForm) Selected() *video.SelectedVideo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected
}

// PreviewURL returns the preview URL of the selected video, or ""
func (f *VideoInputForm) PreviewURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.previewURL
}

// State returns the current lifecycle state
func (f *VideoInputForm) State() video.FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Close releases the selection and revokes its preview
func (f *VideoInputForm) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	if f.previewer != nil && f.previewURL != "" {
		f.previewer.Revoke(f.previewURL)
	}
	f.closed = true
	f.selected = nil
	f.previewURL = ""
	f.state = video.StateIdle
	return nil
}
