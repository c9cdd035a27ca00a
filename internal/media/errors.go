package media

import (
	"errors"
	"fmt"
)

var ErrSourceNotFound = errors.New("source file not found")

// SourceNotFoundError names the input that was missing before ffmpeg ran.
type SourceNotFoundError struct {
	Role string // "Audio" or "Image"
	Path string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("%s file not found: %s", e.Role, e.Path)
}

func (e *SourceNotFoundError) Is(target error) bool {
	return target == ErrSourceNotFound
}

// ExitError reports a non-zero ffmpeg exit together with everything it
// wrote to stderr.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("FFmpeg failed with code %d: %s", e.Code, e.Stderr)
}

// LaunchError reports that the encoder process could not be started.
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("Failed to spawn FFmpeg (%s): %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
