package video

import "context"

// Progress reports fractional completion of a conversion run
type Progress struct {
	// Ratio is in [0,1]
	Ratio float64
}

// Percent returns the ratio rounded to a whole percentage
func (p Progress) Percent() int {
	return int(p.Ratio*100 + 0.5)
}

// ProgressFunc observes progress of a running command
type ProgressFunc func(Progress)

// Engine defines the media conversion engine
// This is a port that can be implemented by different infrastructure adapters
type Engine interface {
	// WriteFile stores data in the engine's private virtual filesystem
	WriteFile(ctx context.Context, name string, data []byte) error

	// ReadFile reads a file back out of the virtual filesystem
	ReadFile(ctx context.Context, name string) ([]byte, error)

	// DeleteFile removes a file from the virtual filesystem; missing files are ignored
	DeleteFile(ctx context.Context, name string) error

	// Exec runs a command against the virtual filesystem, reporting progress
	// to onProgress when it is non-nil
	Exec(ctx context.Context, args []string, onProgress ProgressFunc) error

	// Close releases the engine and its virtual filesystem
	Close() error
}
