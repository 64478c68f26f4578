// Package mock provides a scripted speech engine for testing. Utterances do
// not finish on their own; tests drive completion with FinishCurrent and
// FailCurrent.
package mock

import (
	"sync"

	"github.com/dgnsrekt/storycast/speech"
)

// Utterance records one Speak call.
type Utterance struct {
	Text string
}

// Engine implements speech.Engine with manual completion control.
type Engine struct {
	mu         sync.Mutex
	state      speech.State
	config     speech.VoiceConfig
	current    speech.Callbacks
	hasCurrent bool
	utterances []Utterance
	speakErr   error
	stops      int
	pauses     int
	resumes    int
}

// New creates a mock engine.
func New() *Engine {
	return &Engine{config: speech.DefaultVoiceConfig()}
}

// FailSpeakWith makes subsequent Speak calls return err.
func (e *Engine) FailSpeakWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speakErr = err
}

// Supported always reports true.
func (e *Engine) Supported() bool { return true }

// Voices returns a single test voice.
func (e *Engine) Voices() []speech.Voice {
	return []speech.Voice{{ID: "mock-1", Name: "Mock Voice", Language: "en-US"}}
}

// Speak records the utterance and leaves it in flight until the test
// finishes it. A prior in-flight utterance is silently cancelled.
func (e *Engine) Speak(text string, cb speech.Callbacks) error {
	e.mu.Lock()
	if e.speakErr != nil {
		err := e.speakErr
		e.mu.Unlock()
		return err
	}
	if text == "" {
		e.mu.Unlock()
		return speech.ErrEmptyText
	}
	e.current = cb
	e.hasCurrent = true
	e.state = speech.StateSpeaking
	e.utterances = append(e.utterances, Utterance{Text: text})
	onStart := cb.OnStart
	e.mu.Unlock()

	if onStart != nil {
		onStart()
	}
	return nil
}

// Stop cancels the current utterance without callbacks.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stops++
	e.hasCurrent = false
	e.current = speech.Callbacks{}
	e.state = speech.StateIdle
}

// Pause suspends the current utterance.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauses++
	if e.state == speech.StateSpeaking {
		e.state = speech.StatePaused
	}
}

// Resume continues a paused utterance.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumes++
	if e.state == speech.StatePaused {
		e.state = speech.StateSpeaking
	}
}

// State returns the current utterance state.
func (e *Engine) State() speech.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// VoiceConfig returns the active configuration.
func (e *Engine) VoiceConfig() speech.VoiceConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// SetVoiceConfig updates the configuration.
func (e *Engine) SetVoiceConfig(cfg speech.VoiceConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = cfg
	return nil
}

// FinishCurrent completes the in-flight utterance, firing OnEnd.
func (e *Engine) FinishCurrent() {
	e.mu.Lock()
	if !e.hasCurrent {
		e.mu.Unlock()
		return
	}
	cb := e.current
	e.hasCurrent = false
	e.current = speech.Callbacks{}
	e.state = speech.StateIdle
	e.mu.Unlock()

	if cb.OnEnd != nil {
		cb.OnEnd()
	}
}

// FailCurrent fails the in-flight utterance, firing OnError.
func (e *Engine) FailCurrent(err error) {
	e.mu.Lock()
	if !e.hasCurrent {
		e.mu.Unlock()
		return
	}
	cb := e.current
	e.hasCurrent = false
	e.current = speech.Callbacks{}
	e.state = speech.StateIdle
	e.mu.Unlock()

	if cb.OnError != nil {
		cb.OnError(err)
	}
}

// Utterances returns all recorded Speak calls.
func (e *Engine) Utterances() []Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Utterance, len(e.utterances))
	copy(out, e.utterances)
	return out
}

// StopCount returns how many times Stop was called.
func (e *Engine) StopCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stops
}

// PauseCount returns how many times Pause was called.
func (e *Engine) PauseCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pauses
}

// ResumeCount returns how many times Resume was called.
func (e *Engine) ResumeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resumes
}
