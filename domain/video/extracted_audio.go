package video

import "fmt"

// Output naming for extracted audio. These are fixed and not configurable.
const (
	OutputFilename = "output.mp3"
	MimeTypeMP3    = "audio/mpeg"
)

// ExtractedAudio is the MP3 produced by a conversion run
type ExtractedAudio struct {
	Name     string
	MimeType string
	Data     []byte
}

// NewExtractedAudio wraps converted bytes with the fixed output name and type
func NewExtractedAudio(data []byte) *ExtractedAudio {
	return &ExtractedAudio{
		Name:     OutputFilename,
		MimeType: MimeTypeMP3,
		Data:     data,
	}
}

// UniqueName prefixes the audio name with id so deliveries of different
// submits never share a filename
func (a *ExtractedAudio) UniqueName(id string) string {
	if id == "" {
		return a.Name
	}
	return id + "-" + a.Name
}

// Size returns the size of the audio in bytes
func (a *ExtractedAudio) Size() int64 {
	return int64(len(a.Data))
}

// String describes the audio for diagnostic output
func (a *ExtractedAudio) String() string {
	return fmt.Sprintf("File{name: %s, type: %s, size: %d}", a.Name, a.MimeType, a.Size())
}
