package filesystem

import (
	"fmt"
	"os"

	"upload-ai/domain/video"
)

// Checker implements video.FileChecker using the os package
type Checker struct{}

// NewChecker creates a new filesystem checker
func NewChecker() *Checker {
	return &Checker{}
}

// Exists returns true if the path exists and is a regular file
func (c *Checker) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Ensure Checker implements video.FileChecker
var _ video.FileChecker = (*Checker)(nil)

// Reader implements video.FileReader using the os package
type Reader struct {
	maxSize int64
}

// NewReader creates a reader. A positive maxSize rejects larger files.
func NewReader(maxSize int64) *Reader {
	return &Reader{maxSize: maxSize}
}

// ReadFile reads the whole file into memory
func (r *Reader) ReadFile(path string) ([]byte, error) {
	if r.maxSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.Size() > r.maxSize {
			return nil, fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), r.maxSize)
		}
	}
	return os.ReadFile(path)
}

var _ video.FileReader = (*Reader)(nil)
