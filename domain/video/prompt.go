package video

import "strings"

// TranscriptionPrompt is free text captured alongside a video at submit time.
// It is not validated; the form suggests comma-separated keywords.
type TranscriptionPrompt string

// Keywords splits the prompt on commas, dropping blank entries
func (p TranscriptionPrompt) Keywords() []string {
	var keywords []string
	for _, part := range strings.Split(string(p), ",") {
		if kw := strings.TrimSpace(part); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// String returns the prompt text unchanged
func (p TranscriptionPrompt) String() string {
	return string(p)
}
