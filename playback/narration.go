package playback

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/storycast/speech"
)

// NarrationSynchronizer drives advancement from speech completion. A scene
// advances only when its narration has finished AND the destination scene is
// ready; there is no fixed timer on this path. Scenes with empty narration
// text are left to the timer advancer.
type NarrationSynchronizer struct {
	store  *Store
	engine speech.Engine
	logger *log.Logger

	mu              sync.Mutex
	lastSpokenIndex int  // guard: speak once per index
	waitingNext     bool // guard: speech finished, destination not ready yet
	waitingIdx      int
}

// NewNarrationSynchronizer creates the synchronizer and subscribes it to the
// store.
func NewNarrationSynchronizer(store *Store, engine speech.Engine) *NarrationSynchronizer {
	n := &NarrationSynchronizer{
		store:           store,
		engine:          engine,
		logger:          log.Default().WithPrefix("narration"),
		lastSpokenIndex: -1,
	}
	store.Subscribe(n.onChange)
	return n
}

func (n *NarrationSynchronizer) onChange(ch Change) {
	switch ch.Kind {
	case ChangeExited:
		n.engine.Stop()
		n.mu.Lock()
		n.lastSpokenIndex = -1
		n.waitingNext = false
		n.mu.Unlock()
		return
	case ChangePlayback:
		// Mirror play/pause onto the engine.
		if ch.State.IsPlaying {
			n.engine.Resume()
		} else {
			n.engine.Pause()
		}
	case ChangeEntered, ChangeIndex, ChangeScenes, ChangeImage,
		ChangeSettings, ChangeChapter:
	default:
		return
	}
	n.evaluate(ch.State, ch.Settings)
}

func (n *NarrationSynchronizer) evaluate(state Session, settings Settings) {
	if !state.IsActive || !settings.NarrationEnabled {
		return
	}
	// The timer and narration paths gate identically: a held advancement
	// never fires while paused or under an overlay.
	if !state.IsPlaying || state.ShowEndScreen || state.ShowChapterTransition {
		return
	}

	// Release a held advancement the moment the destination becomes ready.
	// A hold for a scene we navigated away from is dropped.
	n.mu.Lock()
	if n.waitingNext && n.waitingIdx != state.CurrentIndex {
		n.waitingNext = false
	}
	waiting := n.waitingNext
	n.mu.Unlock()
	if waiting {
		if state.NextSceneReady() {
			n.clearWaiting()
			n.store.Next()
			return
		}
		// Generation ran dry while holding on the last scene.
		if state.IsLastScene() && state.IsStoryComplete {
			n.clearWaiting()
			n.store.Next()
		}
		return
	}

	cur, ok := state.CurrentScene()
	if !ok || cur.NarrationText == "" {
		return
	}

	n.mu.Lock()
	if n.lastSpokenIndex == cur.Index {
		n.mu.Unlock()
		return
	}
	n.lastSpokenIndex = cur.Index
	n.waitingNext = false
	n.mu.Unlock()

	idx := cur.Index
	n.logger.Debug("speaking scene", "index", idx)
	err := n.engine.Speak(cur.NarrationText, speech.Callbacks{
		OnEnd:   func() { n.handleSpeechDone(idx) },
		OnError: func(err error) { n.handleSpeechError(idx, err) },
	})
	if err != nil {
		n.handleSpeechError(idx, err)
	}
}

// handleSpeechDone advances or arms the waiting guard once narration for
// scene idx finishes.
func (n *NarrationSynchronizer) handleSpeechDone(idx int) {
	state := n.store.State()
	settings := n.store.Settings()
	if !state.IsActive || state.CurrentIndex != idx || !settings.NarrationEnabled {
		return
	}

	if state.IsLastScene() {
		// More scenes may still arrive; let the prefetch append satisfy the
		// held advancement.
		if settings.AutoGenerate && !state.IsStoryComplete {
			n.markWaiting(idx)
			return
		}
		n.store.Next()
		return
	}
	if state.NextSceneReady() {
		n.store.Next()
		return
	}
	n.markWaiting(idx)
}

// handleSpeechError abandons narration for the scene and falls back to the
// readiness-gated path so a synthesis failure never blocks advancement.
func (n *NarrationSynchronizer) handleSpeechError(idx int, err error) {
	n.logger.Warn("narration failed, falling back to readiness gate", "index", idx, "err", err)
	n.handleSpeechDone(idx)
}

func (n *NarrationSynchronizer) markWaiting(idx int) {
	n.mu.Lock()
	n.waitingNext = true
	n.waitingIdx = idx
	n.mu.Unlock()
}

func (n *NarrationSynchronizer) clearWaiting() {
	n.mu.Lock()
	n.waitingNext = false
	n.mu.Unlock()
}
