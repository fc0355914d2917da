package chat

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput        = errors.New("message is empty")
	ErrBusy              = errors.New("a response is still streaming")
	ErrNotConfigured     = errors.New("api credential is not configured")
	ErrMissingCredential = errors.New("api credential is empty")
)

// ConfigurationError reports an unusable credential. Submissions stay blocked until a
// working credential is configured.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Stage names the boundary a generation failed at.
type Stage string

const (
	StageRequest Stage = "request"
	StageStream  Stage = "stream"
)

// GenerationError reports a failed completion call. The failure has already been recorded
// in the transcript as an assistant turn.
type GenerationError struct {
	Stage Stage
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed during %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
