package video

import (
	"fmt"
	"path/filepath"

	"upload-ai/domain/video"
)

// ValidationError contains details about a validation failure with suggestions
type ValidationError struct {
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s\n\nTo fix this, run:\n  %s", e.Message, e.Suggestion)
	}
	return e.Message
}

// SelectService turns local paths into videos a form can select
type SelectService struct {
	fileChecker video.FileChecker
	reader      video.FileReader
}

// NewSelectService creates a new SelectService
func NewSelectService(fileChecker video.FileChecker, reader video.FileReader) *SelectService {
	return &SelectService{
		fileChecker: fileChecker,
		reader:      reader,
	}
}

// Load checks every path and reads the first one. The remaining paths are
// validated but not read, since a form only keeps the first file of a
// selection. An empty list returns an empty selection.
func (s *SelectService) Load(paths []string) ([]*video.SelectedVideo, error) {
	for _, p := range paths {
		if !s.fileChecker.Exists(p) {
			return nil, &ValidationError{
				Message:    fmt.Sprintf("video file does not exist: %s", p),
				Suggestion: fmt.Sprintf("ls %s", filepath.Dir(p)),
			}
		}
	}
	if len(paths) == 0 {
		return nil, nil
	}

	data, err := s.reader.ReadFile(paths[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", paths[0], err)
	}

	v, err := video.NewSelectedVideo(paths[0], "", data)
	if err != nil {
		return nil, err
	}
	return []*video.SelectedVideo{v}, nil
}
