package sink

import (
	"context"

	"upload-ai/domain/video"

	"golang.org/x/sync/errgroup"
)

// Multi implements video.AudioSink by delivering to every sink concurrently.
// The first failure cancels the remaining deliveries.
type Multi struct {
	sinks []video.AudioSink
}

// NewMulti combines sinks, skipping nil entries
func NewMulti(sinks ...video.AudioSink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of combined sinks
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Consume implements video.AudioSink
func (m *Multi) Consume(ctx context.Context, audio *video.ExtractedAudio, prompt video.TranscriptionPrompt) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range m.sinks {
		s := s
		g.Go(func() error {
			return s.Consume(ctx, audio, prompt)
		})
	}
	return g.Wait()
}

// Ensure Multi implements video.AudioSink
var _ video.AudioSink = (*Multi)(nil)
