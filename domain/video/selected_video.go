package video

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AcceptMimeType is the file type hint offered by the file picker.
// It is advisory only: selection never rejects other types.
const AcceptMimeType = "video/mp4"

// SelectedVideo is a video picked by the user, held in memory by a form
type SelectedVideo struct {
	Name     string
	MimeType string
	Data     []byte
}

// NewSelectedVideo creates a SelectedVideo, guessing the MIME type from the
// filename when none is given
func NewSelectedVideo(name, mimeType string, data []byte) (*SelectedVideo, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("video filename is required")
	}

	if mimeType == "" {
		mimeType = GuessMimeType(name)
	}

	return &SelectedVideo{
		Name:     name,
		MimeType: mimeType,
		Data:     data,
	}, nil
}

// Size returns the size of the video in bytes
func (v *SelectedVideo) Size() int64 {
	return int64(len(v.Data))
}

// GuessMimeType returns a MIME type for common video extensions,
// falling back to application/octet-stream
func GuessMimeType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}
