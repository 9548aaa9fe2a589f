package whisper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"upload-ai/domain/video"

	openai "github.com/sashabaranov/go-openai"
)

// TranscriptionClient defines the OpenAI audio API used by Transcriber
// This allows mocking the OpenAI API in tests
type TranscriptionClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// Transcriber implements video.AudioSink by sending the audio and the
// transcription prompt to Whisper and writing the transcript out
type Transcriber struct {
	client   TranscriptionClient
	model    string
	language string
	output   io.Writer
}

// TranscriberOption is a functional option for configuring Transcriber
type TranscriberOption func(*Transcriber)

// WithModel sets the transcription model (default whisper-1)
func WithModel(model string) TranscriberOption {
	return func(t *Transcriber) {
		if model != "" {
			t.model = model
		}
	}
}

// WithLanguage sets the ISO-639-1 language hint
func WithLanguage(lang string) TranscriberOption {
	return func(t *Transcriber) {
		t.language = lang
	}
}

// WithOutput sets where transcripts are written
func WithOutput(w io.Writer) TranscriberOption {
	return func(t *Transcriber) {
		if w != nil {
			t.output = w
		}
	}
}

// WithClient sets a custom API client (for testing)
func WithClient(c TranscriptionClient) TranscriberOption {
	return func(t *Transcriber) {
		t.client = c
	}
}

// NewTranscriber creates a Whisper transcriber using apiKey
func NewTranscriber(apiKey string, opts ...TranscriberOption) (*Transcriber, error) {
	t := &Transcriber{
		model:  openai.Whisper1,
		output: io.Discard,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.client == nil {
		if strings.TrimSpace(apiKey) == "" {
			return nil, fmt.Errorf("openai api key is required for transcription")
		}
		t.client = openai.NewClient(apiKey)
	}

	return t, nil
}

// Transcribe returns the transcript of audio, guided by prompt
func (t *Transcriber) Transcribe(ctx context.Context, audio *video.ExtractedAudio, prompt video.TranscriptionPrompt) (string, error) {
	req := openai.AudioRequest{
		Model:    t.model,
		FilePath: audio.Name,
		Reader:   bytes.NewReader(audio.Data),
		Prompt:   prompt.String(),
		Language: t.language,
		Format:   openai.AudioResponseFormatJSON,
	}

	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

// Consume implements video.AudioSink
func (t *Transcriber) Consume(ctx context.Context, audio *video.ExtractedAudio, prompt video.TranscriptionPrompt) error {
	text, err := t.Transcribe(ctx, audio, prompt)
	if err != nil {
		return err
	}

	fmt.Fprintf(t.output, "Transcription:\n%s\n", text)
	return nil
}

// Ensure Transcriber implements video.AudioSink
var _ video.AudioSink = (*Transcriber)(nil)
