package playback

import (
	"sync"
	"testing"
	"time"
)

// recordingConfigStore records Save calls and can stall them behind a gate.
type recordingConfigStore struct {
	mu    sync.Mutex
	saved []Settings
	gate  chan struct{} // when non-nil, Save blocks until closed
}

func (c *recordingConfigStore) Load() (Settings, error) { return DefaultSettings(), nil }

func (c *recordingConfigStore) Save(s Settings) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	c.saved = append(c.saved, s)
	c.mu.Unlock()
	return nil
}

func (c *recordingConfigStore) Watch(func(Settings)) (func(), error) {
	return func() {}, nil
}

func (c *recordingConfigStore) saveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.saved)
}

func TestSettingsSaverPersistsEdits(t *testing.T) {
	store := NewStore(DefaultSettings())
	cfg := &recordingConfigStore{}
	saver := NewSettingsSaver(cfg, store, DefaultSettings())
	defer saver.Close()

	v := false
	store.UpdateSettings(SettingsPatch{NarrationEnabled: &v})

	waitFor(t, time.Second, "settings to be saved", func() bool {
		return cfg.saveCount() == 1
	})
	cfg.mu.Lock()
	got := cfg.saved[0]
	cfg.mu.Unlock()
	if got.NarrationEnabled {
		t.Error("stale settings persisted")
	}
}

func TestSettingsSaverDoesNotBlockDispatch(t *testing.T) {
	store := NewStore(DefaultSettings())
	gate := make(chan struct{})
	cfg := &recordingConfigStore{gate: gate}
	saver := NewSettingsSaver(cfg, store, DefaultSettings())

	// A stalled disk write must not stall the action that triggered it.
	v := false
	done := make(chan struct{})
	go func() {
		store.UpdateSettings(SettingsPatch{NarrationEnabled: &v})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("settings update blocked on a stalled save")
	}

	close(gate)
	saver.Close()
	if cfg.saveCount() == 0 {
		t.Error("save never happened")
	}
}

func TestSettingsSaverSkipsWatcherEcho(t *testing.T) {
	store := NewStore(DefaultSettings())
	cfg := &recordingConfigStore{}
	next := DefaultSettings()
	next.SagaMode = true
	saver := NewSettingsSaver(cfg, store, next) // next is already on disk

	// The file watcher echoing the persisted value back must not rewrite it.
	store.ReplaceSettings(next)
	time.Sleep(20 * time.Millisecond)
	saver.Close()
	if got := cfg.saveCount(); got != 0 {
		t.Errorf("echoed settings saved %d times, want 0", got)
	}
}
