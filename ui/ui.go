// Package ui provides the terminal player for storycast.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/storycast/playback"
)

// Config carries the pieces the player needs beyond the store itself.
type Config struct {
	Store    *playback.Store
	Prefetch *playback.PrefetchCoordinator // may be nil
	Chapter  *playback.ChapterController   // may be nil
	Mouse    bool
}

// NewProgram returns a new Tea program running the player.
func NewProgram(cfg Config) *tea.Program {
	log.Debug("starting player", "mouse", cfg.Mouse)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.Mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg), opts...)
}
