package playback

import "errors"

// Common errors for the playback core.
var (
	// Session errors
	ErrSessionNotActive = errors.New("no active playback session")
	ErrSessionActive    = errors.New("a playback session is already active")
	ErrSceneIndexRange  = errors.New("scene index out of range")
	ErrNoScenes         = errors.New("no scenes to play")
	ErrInvalidSettings  = errors.New("invalid playback settings")

	// Generation errors
	ErrGenerationFailed = errors.New("scene generation failed")
	ErrPrefetchInFlight = errors.New("a prefetch is already in flight")
	ErrStoryComplete    = errors.New("story is complete, no more scenes")

	// Continuation errors
	ErrNoContinuation = errors.New("no continuation available")

	// Seed file errors
	ErrEmptySeed = errors.New("seed file contains no scenes")
)

// PlaybackError wraps an error with the component and action that produced
// it, for structured logging and user-facing messages.
type PlaybackError struct {
	Err       error
	Component string
	Action    string
}

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	if e.Err != nil {
		return e.Component + ": " + e.Action + ": " + e.Err.Error()
	}
	return e.Component + ": " + e.Action + ": unknown error"
}

// Unwrap returns the underlying error.
func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// NewError creates a PlaybackError with component and action context.
func NewError(err error, component, action string) *PlaybackError {
	return &PlaybackError{Err: err, Component: component, Action: action}
}
