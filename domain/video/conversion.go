package video

import (
	"fmt"
	"strings"
)

// Fixed encoding parameters for audio extraction
const (
	AudioBitrate = "20k"
	AudioCodec   = "libmp3lame"
	AudioMapping = "0:a"
)

// Default virtual filenames used when a caller does not need unique names
const (
	DefaultInputName  = "input.mp4"
	DefaultOutputName = OutputFilename
)

// ConversionNames are the virtual filesystem names used by one conversion run
type ConversionNames struct {
	Input  string
	Output string
}

// NewConversionNames prefixes the default names with a per-call identifier so
// concurrent runs on the same engine never share files. An empty id yields the
// default names.
func NewConversionNames(id string) ConversionNames {
	id = strings.TrimSpace(id)
	if id == "" {
		return ConversionNames{Input: DefaultInputName, Output: DefaultOutputName}
	}
	return ConversionNames{
		Input:  id + "-" + DefaultInputName,
		Output: id + "-" + DefaultOutputName,
	}
}

// Files returns every virtual file a run may leave behind
func (n ConversionNames) Files() []string {
	return []string{n.Input, n.Output}
}

// ConversionArgs returns the engine arguments that demux the first audio
// stream and encode it as constant-bitrate MP3
func ConversionArgs(names ConversionNames) []string {
	return []string{
		"-i", names.Input,
		"-map", AudioMapping,
		"-b:a", AudioBitrate,
		"-acodec", AudioCodec,
		names.Output,
	}
}

// ValidateName rejects names that would escape a flat virtual filesystem
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("file name is required")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid virtual file name %q", name)
	}
	return nil
}
