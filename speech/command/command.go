// Package command implements a speech engine that shells out to a local
// text-to-speech binary such as say, espeak-ng, or a piper wrapper.
package command

import (
	"fmt"
	"os/exec"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/storycast/speech"
)

// Config selects and parameterizes the speech binary.
type Config struct {
	// Binary is the executable to run. When empty, the first known speech
	// binary found on PATH is used.
	Binary string
	// Args are extra arguments placed before the text.
	Args []string
}

// knownBinaries are probed in order when no binary is configured.
var knownBinaries = []string{"say", "espeak-ng", "espeak", "festival"}

// Engine speaks by running one subprocess per utterance. A new Speak kills
// any running process first, so at most one utterance is in flight.
type Engine struct {
	binary string
	args   []string
	logger *log.Logger

	mu     sync.Mutex
	state  speech.State
	config speech.VoiceConfig
	cmd    *exec.Cmd
	gen    uint64 // invalidates the waiter of a cancelled utterance
}

// New creates a command engine, probing PATH when cfg.Binary is empty.
func New(cfg Config) (*Engine, error) {
	binary := cfg.Binary
	if binary == "" {
		for _, candidate := range knownBinaries {
			if _, err := exec.LookPath(candidate); err == nil {
				binary = candidate
				break
			}
		}
	}
	if binary == "" {
		return nil, speech.ErrNotSupported
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("speech binary %q not found: %w", binary, err)
	}
	return &Engine{
		binary: binary,
		args:   cfg.Args,
		logger: log.Default().WithPrefix("speech"),
		config: speech.DefaultVoiceConfig(),
	}, nil
}

// Supported reports whether the binary resolved at construction.
func (e *Engine) Supported() bool { return e.binary != "" }

// Voices returns the configured voice only; binary voice enumeration is not
// portable across the supported binaries.
func (e *Engine) Voices() []speech.Voice {
	cfg := e.VoiceConfig()
	name := cfg.Voice
	if name == "" {
		name = "default"
	}
	return []speech.Voice{{ID: name, Name: name}}
}

// Speak cancels any running utterance and starts a new subprocess for text.
func (e *Engine) Speak(text string, cb speech.Callbacks) error {
	if text == "" {
		return speech.ErrEmptyText
	}

	e.mu.Lock()
	e.killLocked()
	e.gen++
	gen := e.gen

	args := append([]string{}, e.args...)
	args = append(args, e.voiceArgsLocked()...)
	args = append(args, text)
	cmd := exec.Command(e.binary, args...)
	if err := cmd.Start(); err != nil {
		e.state = speech.StateIdle
		e.mu.Unlock()
		return fmt.Errorf("starting %s: %w", e.binary, err)
	}
	e.cmd = cmd
	e.state = speech.StateSpeaking
	e.mu.Unlock()

	if cb.OnStart != nil {
		cb.OnStart()
	}

	go func() {
		err := cmd.Wait()

		e.mu.Lock()
		if e.gen != gen {
			// Cancelled by Stop or a newer Speak; no terminal callback.
			e.mu.Unlock()
			return
		}
		e.cmd = nil
		e.state = speech.StateIdle
		e.mu.Unlock()

		if err != nil {
			e.logger.Debug("utterance failed", "binary", e.binary, "err", err)
			if cb.OnError != nil {
				cb.OnError(err)
			}
			return
		}
		if cb.OnEnd != nil {
			cb.OnEnd()
		}
	}()

	return nil
}

// voiceArgsLocked maps the voice config onto flags for the known binaries.
func (e *Engine) voiceArgsLocked() []string {
	var args []string
	switch e.binary {
	case "say":
		if e.config.Voice != "" {
			args = append(args, "-v", e.config.Voice)
		}
		if e.config.Rate > 0 && e.config.Rate != 1.0 {
			// say takes words per minute; 175 is its default.
			args = append(args, "-r", strconv.Itoa(int(175*e.config.Rate)))
		}
	case "espeak", "espeak-ng":
		if e.config.Voice != "" {
			args = append(args, "-v", e.config.Voice)
		}
		if e.config.Rate > 0 && e.config.Rate != 1.0 {
			args = append(args, "-s", strconv.Itoa(int(175*e.config.Rate)))
		}
		if e.config.Volume > 0 && e.config.Volume != 1.0 {
			args = append(args, "-a", strconv.Itoa(int(100*e.config.Volume)))
		}
	}
	return args
}

// Stop kills the current utterance. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.killLocked()
}

func (e *Engine) killLocked() {
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	e.cmd = nil
	e.state = speech.StateIdle
}

// Pause suspends the utterance subprocess. Idempotent; a no-op on platforms
// without job control.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != speech.StateSpeaking || e.cmd == nil || e.cmd.Process == nil {
		return
	}
	if err := suspendProcess(e.cmd.Process); err != nil {
		e.logger.Debug("pause signal failed", "err", err)
		return
	}
	e.state = speech.StatePaused
}

// Resume continues a paused utterance. Idempotent.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != speech.StatePaused || e.cmd == nil || e.cmd.Process == nil {
		return
	}
	if err := resumeProcess(e.cmd.Process); err != nil {
		e.logger.Debug("resume signal failed", "err", err)
		return
	}
	e.state = speech.StateSpeaking
}

// State returns the current utterance state.
func (e *Engine) State() speech.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// VoiceConfig returns the active synthesis parameters.
func (e *Engine) VoiceConfig() speech.VoiceConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// SetVoiceConfig updates the synthesis parameters for future utterances.
func (e *Engine) SetVoiceConfig(cfg speech.VoiceConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = cfg
	return nil
}
