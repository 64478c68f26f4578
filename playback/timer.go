package playback

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// TimerAdvancer drives scene advancement by elapsed time. It owns at most
// one pending timer; every relevant state change cancels and reschedules
// instead of layering timers. It stands down entirely for scenes owned by
// the narration synchronizer (narration enabled and non-empty text).
type TimerAdvancer struct {
	store  *Store
	logger *log.Logger

	mu          sync.Mutex
	timer       *time.Timer
	gen         uint64 // invalidates stale timer callbacks
	waitingNext bool   // a duration elapsed but the next scene was not ready
	waitingIdx  int
}

// NewTimerAdvancer creates the advancer and subscribes it to the store.
func NewTimerAdvancer(store *Store) *TimerAdvancer {
	t := &TimerAdvancer{
		store:  store,
		logger: log.Default().WithPrefix("timer"),
	}
	store.Subscribe(t.onChange)
	return t
}

func (t *TimerAdvancer) onChange(ch Change) {
	switch ch.Kind {
	case ChangeEntered, ChangePlayback, ChangeIndex, ChangeScenes,
		ChangeImage, ChangeSettings, ChangeChapter:
		t.evaluate(ch.State, ch.Settings)
	case ChangeExited:
		t.cancel()
		t.mu.Lock()
		t.waitingNext = false
		t.mu.Unlock()
	}
}

// evaluate is the single reactive rule: cancel whatever was scheduled, then
// schedule at most one new timer for the current state.
func (t *TimerAdvancer) evaluate(state Session, settings Settings) {
	gen := t.cancel()

	if !state.IsActive || !state.IsPlaying || state.ShowEndScreen || state.ShowChapterTransition {
		return
	}
	cur, ok := state.CurrentScene()
	if !ok {
		return
	}
	// Narration owns advancement for spoken scenes.
	if settings.NarrationEnabled && cur.NarrationText != "" {
		return
	}

	t.mu.Lock()
	if t.waitingIdx != state.CurrentIndex {
		t.waitingNext = false
	}
	waiting := t.waitingNext
	t.mu.Unlock()

	// A previous timer already elapsed for this scene; advance as soon as
	// the destination is ready instead of replaying the full duration.
	if waiting && state.NextSceneReady() {
		t.mu.Lock()
		t.waitingNext = false
		t.mu.Unlock()
		t.store.Next()
		return
	}
	if waiting {
		// Generation ran dry while holding on the last scene; fall through
		// to the normal end-of-sequence behavior.
		if state.IsLastScene() && (state.IsStoryComplete || !settings.AutoGenerate) {
			t.mu.Lock()
			t.waitingNext = false
			t.mu.Unlock()
			t.store.Next()
		}
		return
	}

	// Hold until the current image materializes; the image change
	// notification re-runs this rule.
	if !cur.ImageReady() {
		return
	}

	d := state.SceneDuration(settings)
	t.mu.Lock()
	if t.gen == gen {
		t.timer = time.AfterFunc(d, func() { t.fire(gen) })
	}
	t.mu.Unlock()
}

// cancel stops any pending timer and bumps the generation so a concurrently
// firing callback becomes a no-op. Returns the new generation.
func (t *TimerAdvancer) cancel() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	return t.gen
}

func (t *TimerAdvancer) fire(gen uint64) {
	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.mu.Unlock()

	state := t.store.State()
	settings := t.store.Settings()
	if !state.IsActive || !state.IsPlaying || state.ShowEndScreen || state.ShowChapterTransition {
		return
	}
	cur, ok := state.CurrentScene()
	if !ok || (settings.NarrationEnabled && cur.NarrationText != "") {
		return
	}

	if state.IsLastScene() {
		// With generation still possible the prefetch coordinator extends
		// the sequence; hold until the appended scene is ready.
		if settings.AutoGenerate && !state.IsStoryComplete {
			t.markWaiting(state.CurrentIndex)
			return
		}
		t.store.Next()
		return
	}
	if state.NextSceneReady() {
		t.store.Next()
		return
	}
	t.markWaiting(state.CurrentIndex)
}

func (t *TimerAdvancer) markWaiting(idx int) {
	t.mu.Lock()
	t.waitingNext = true
	t.waitingIdx = idx
	t.mu.Unlock()
	t.logger.Debug("holding for next scene readiness", "index", idx)
}
