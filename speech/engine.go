// Package speech defines the narration engine surface used by the playback
// core and shared by its implementations.
package speech

import "errors"

// State represents the engine's utterance state.
type State int

const (
	// StateIdle indicates no utterance is active.
	StateIdle State = iota
	// StateSpeaking indicates an utterance is in progress.
	StateSpeaking
	// StatePaused indicates the current utterance is suspended.
	StatePaused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Common engine errors.
var (
	ErrNotSupported = errors.New("speech engine is not supported on this system")
	ErrEmptyText    = errors.New("nothing to speak")
	ErrEngineBusy   = errors.New("speech engine is busy")
)

// Callbacks receive utterance lifecycle notifications. An utterance gets at
// most one terminal callback, OnEnd or OnError; an utterance cancelled by
// Stop or by a newer Speak gets none.
type Callbacks struct {
	OnStart func()
	OnEnd   func()
	OnError func(error)
}

// Voice describes an available narration voice.
type Voice struct {
	ID       string
	Name     string
	Language string
}

// VoiceConfig holds tunable synthesis parameters.
type VoiceConfig struct {
	Voice  string
	Rate   float64 // speaking rate multiplier, 1.0 = normal
	Pitch  float64
	Volume float64 // 0.0 to 1.0
}

// DefaultVoiceConfig returns a neutral configuration.
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{Rate: 1.0, Pitch: 0, Volume: 1.0}
}

// Engine is the capability surface for narration synthesis. Implementations
// guarantee: a new Speak implicitly cancels any prior utterance; Stop,
// Pause, and Resume are idempotent; at most one utterance is in flight.
type Engine interface {
	// Supported reports whether the engine can run on this system.
	Supported() bool

	// Voices returns the available voices.
	Voices() []Voice

	// Speak starts narrating text. The callbacks fire on the engine's own
	// goroutine once the utterance starts, ends, or fails.
	Speak(text string, cb Callbacks) error

	// Stop cancels the current utterance without callbacks.
	Stop()

	// Pause suspends the current utterance.
	Pause()

	// Resume continues a paused utterance.
	Resume()

	// State returns the current utterance state.
	State() State

	// VoiceConfig returns the active synthesis parameters.
	VoiceConfig() VoiceConfig

	// SetVoiceConfig updates the synthesis parameters.
	SetVoiceConfig(VoiceConfig) error
}
