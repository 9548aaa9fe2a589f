package video

import "context"

// FileChecker defines the interface for checking file existence
// This is used to validate that source files exist before loading them
type FileChecker interface {
	// Exists returns true if the file exists
	Exists(path string) bool
}

// FileReader loads file contents from local storage
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// Previewer hands out preview URLs for selected videos
type Previewer interface {
	// Create registers the video and returns a URL that serves it
	Create(v *SelectedVideo) (string, error)

	// Revoke invalidates a URL returned by Create
	Revoke(url string)
}

// AudioSink receives audio produced by a successful submit
type AudioSink interface {
	Consume(ctx context.Context, audio *ExtractedAudio, prompt TranscriptionPrompt) error
}
