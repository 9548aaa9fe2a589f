package sink

import (
	"context"
	"fmt"
	"io"

	"upload-ai/domain/video"
)

// Log implements video.AudioSink by describing the audio on a writer.
// Nothing is persisted.
type Log struct {
	output io.Writer
}

// NewLog creates a sink that writes to output
func NewLog(output io.Writer) *Log {
	if output == nil {
		output = io.Discard
	}
	return &Log{output: output}
}

// Consume implements video.AudioSink
func (l *Log) Consume(ctx context.Context, audio *video.ExtractedAudio, prompt video.TranscriptionPrompt) error {
	fmt.Fprintf(l.output, "Audio ready: %s (%s, %.1f KB)\n", audio.Name, audio.MimeType, float64(audio.Size())/1024)
	if keywords := prompt.Keywords(); len(keywords) > 0 {
		fmt.Fprintf(l.output, "Prompt keywords: %v\n", keywords)
	}
	return nil
}

// Ensure Log implements video.AudioSink
var _ video.AudioSink = (*Log)(nil)
