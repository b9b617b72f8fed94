package entities

import "fmt"

// UpstreamError reports a failed or timed-out call to an external
// collaborator (chat completion or speech synthesis). A timeout is
// treated identically to any other upstream failure.
type UpstreamError struct {
	Op  string // "completion" or "synthesis"
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError wraps err as an upstream failure of the given operation.
func NewUpstreamError(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Err: err}
}

// ValidationError reports invalid input rejected locally, before any
// collaborator is contacted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError creates a ValidationError with the given reason.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// PlaybackError reports a local audio decode or play failure. It is
// swallowed at the playback queue (logged, queue advances) and never
// propagates further up.
type PlaybackError struct {
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback failed: %v", e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
