package playback

import (
	"sync"

	"github.com/charmbracelet/log"
)

// SettingsSaver persists settings edits made while the player runs. Saves
// happen on a dedicated goroutine; the subscriber only records the latest
// value, so it never blocks the dispatch loop on disk IO. Values identical
// to the last persisted one are skipped, which settles the save/watch echo.
type SettingsSaver struct {
	cfg    ConfigStore
	logger *log.Logger

	mu      sync.Mutex
	pending *Settings
	saved   Settings
	closed  bool
	kick    chan struct{}
	done    chan struct{}
}

// NewSettingsSaver attaches a saver to the store and starts its writer
// goroutine. current is the settings value already on disk. Call Close when
// playback ends.
func NewSettingsSaver(cfg ConfigStore, store *Store, current Settings) *SettingsSaver {
	s := &SettingsSaver{
		cfg:    cfg,
		logger: log.Default().WithPrefix("settings"),
		saved:  current,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	store.Subscribe(s.onChange)
	go s.writeLoop()
	return s
}

func (s *SettingsSaver) onChange(ch Change) {
	if ch.Kind != ChangeSettings {
		return
	}
	s.mu.Lock()
	if s.closed || ch.Settings == s.saved {
		s.mu.Unlock()
		return
	}
	s.saved = ch.Settings
	settings := ch.Settings
	s.pending = &settings
	s.mu.Unlock()
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *SettingsSaver) writeLoop() {
	for range s.kick {
		s.flush()
	}
	close(s.done)
}

func (s *SettingsSaver) flush() {
	s.mu.Lock()
	settings := s.pending
	s.pending = nil
	s.mu.Unlock()
	if settings == nil {
		return
	}
	if err := s.cfg.Save(*settings); err != nil {
		s.logger.Warn("could not persist settings", "err", err)
	}
}

// Close flushes any pending settings and stops the writer.
func (s *SettingsSaver) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.kick)
	<-s.done
	s.flush()
}
