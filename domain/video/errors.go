package video

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineInit is returned when the conversion engine cannot start
	ErrEngineInit = errors.New("conversion engine failed to initialize")

	// ErrNoAudioStream is returned when the input has no audio track to map
	ErrNoAudioStream = errors.New("input has no audio stream")

	// ErrEngineClosed is returned when an engine is used after Close
	ErrEngineClosed = errors.New("conversion engine is closed")

	// ErrFileNotFound is returned when a virtual file does not exist
	ErrFileNotFound = errors.New("virtual file not found")
)

// Stage names a suspension point of the conversion pipeline
type Stage string

// StageProgress is reserved. The progress observer is a plain argument to
// Engine.Exec and registering it cannot fail, so no StageError carries it.
const (
	StageInit     Stage = "init"
	StageWrite    Stage = "write"
	StageProgress Stage = "progress"
	StageExec     Stage = "exec"
	StageRead     Stage = "read"
	StageWrap     Stage = "wrap"
)

// StageError reports which pipeline stage failed
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("convert %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded in err, if any
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
