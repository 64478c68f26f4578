package playback

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// stubProvider scripts ContinueChapter for tests.
type stubProvider struct {
	calls atomic.Int64
	fn    func() (*Continuation, error)
}

func (p *stubProvider) ContinueChapter(ctx context.Context) (*Continuation, error) {
	p.calls.Add(1)
	return p.fn()
}

func sagaSettings() Settings {
	s := DefaultSettings()
	s.SagaMode = true
	s.NarrationEnabled = false
	s.SceneDuration = time.Hour
	s.AutoGenerate = false
	return s
}

func nextChapter() *Continuation {
	return &Continuation{
		SessionID:     "sess-2",
		Title:         "Book Two",
		ChapterNumber: 2,
		Scenes:        testScenes(2),
	}
}

// completeLastScene drives the store into the transition trigger state:
// story complete, saga on, sitting on the last scene.
func completeLastScene(store *Store) {
	store.Enter("sess-1", "Book One", testScenes(1), 0)
	store.SetStoryComplete(true)
}

func TestChapterCountdownContinuesAutomatically(t *testing.T) {
	store := NewStore(sagaSettings())
	provider := &stubProvider{fn: func() (*Continuation, error) { return nextChapter(), nil }}
	NewChapterController(context.Background(), store, provider, WithCountdown(2, 10*time.Millisecond))

	completeLastScene(store)

	waitFor(t, time.Second, "transition raised", func() bool {
		return store.State().ShowChapterTransition
	})
	waitFor(t, time.Second, "next chapter started", func() bool {
		s := store.State()
		return s.ChapterNumber == 2 && !s.ShowChapterTransition
	})

	state := store.State()
	if state.ID != "sess-2" || state.CurrentIndex != 0 || !state.IsPlaying {
		t.Errorf("chapter 2 not started cleanly: %+v", state)
	}
	if got := provider.calls.Load(); got != 1 {
		t.Errorf("provider called %d times, want 1", got)
	}
}

func TestChapterStartNowSkipsCountdown(t *testing.T) {
	store := NewStore(sagaSettings())
	provider := &stubProvider{fn: func() (*Continuation, error) { return nextChapter(), nil }}
	// A glacial tick: only StartNow can continue within the test window.
	controller := NewChapterController(context.Background(), store, provider, WithCountdown(5, time.Hour))

	completeLastScene(store)
	waitFor(t, time.Second, "transition raised", func() bool {
		return store.State().ShowChapterTransition
	})

	controller.StartNow()
	waitFor(t, time.Second, "next chapter started", func() bool {
		return store.State().ChapterNumber == 2
	})
	if got := provider.calls.Load(); got != 1 {
		t.Errorf("provider called %d times, want 1", got)
	}
}

func TestChapterCountdownPauseFreezes(t *testing.T) {
	store := NewStore(sagaSettings())
	provider := &stubProvider{fn: func() (*Continuation, error) { return nextChapter(), nil }}
	controller := NewChapterController(context.Background(), store, provider, WithCountdown(3, 20*time.Millisecond))

	completeLastScene(store)
	waitFor(t, time.Second, "transition raised", func() bool {
		return store.State().ShowChapterTransition
	})
	controller.ToggleCountdownPause()

	time.Sleep(120 * time.Millisecond)
	state := store.State()
	if !state.ShowChapterTransition {
		t.Fatal("countdown completed while paused")
	}
	if got := provider.calls.Load(); got != 0 {
		t.Fatalf("provider called while countdown paused")
	}

	controller.ToggleCountdownPause()
	waitFor(t, time.Second, "continue after unpause", func() bool {
		return store.State().ChapterNumber == 2
	})
}

func TestChapterStopTransitionExitsWithoutProvider(t *testing.T) {
	store := NewStore(sagaSettings())
	provider := &stubProvider{fn: func() (*Continuation, error) { return nextChapter(), nil }}
	controller := NewChapterController(context.Background(), store, provider, WithCountdown(5, time.Hour))

	completeLastScene(store)
	waitFor(t, time.Second, "transition raised", func() bool {
		return store.State().ShowChapterTransition
	})

	controller.StopTransition()

	if store.State().IsActive {
		t.Error("session should be exited")
	}
	if got := provider.calls.Load(); got != 0 {
		t.Errorf("provider called %d times on the stop path, want 0", got)
	}
}

func TestChapterProviderFailureEndsSession(t *testing.T) {
	store := NewStore(sagaSettings())
	provider := &stubProvider{fn: func() (*Continuation, error) {
		return nil, errors.New("model unavailable")
	}}
	NewChapterController(context.Background(), store, provider, WithCountdown(1, 10*time.Millisecond))

	completeLastScene(store)

	waitFor(t, time.Second, "clean end after failure", func() bool {
		s := store.State()
		return s.IsActive && s.ShowEndScreen && !s.ShowChapterTransition
	})
	if store.State().ChapterNumber != 1 {
		t.Error("chapter should not advance on failure")
	}

	// The trigger state persists on the end screen; the transition must not
	// be raised again.
	time.Sleep(80 * time.Millisecond)
	if store.State().ShowChapterTransition {
		t.Error("transition re-raised after a failed continuation")
	}
	if got := provider.calls.Load(); got != 1 {
		t.Errorf("provider called %d times, want exactly 1", got)
	}
}

func TestChapterNoContinuationEndsSession(t *testing.T) {
	store := NewStore(sagaSettings())
	provider := &stubProvider{fn: func() (*Continuation, error) { return nil, nil }}
	NewChapterController(context.Background(), store, provider, WithCountdown(1, 10*time.Millisecond))

	completeLastScene(store)

	waitFor(t, time.Second, "clean end with no continuation", func() bool {
		s := store.State()
		return s.IsActive && s.ShowEndScreen && !s.ShowChapterTransition
	})
}

func TestChapterNoTransitionWithoutSaga(t *testing.T) {
	settings := sagaSettings()
	settings.SagaMode = false
	store := NewStore(settings)
	provider := &stubProvider{fn: func() (*Continuation, error) { return nextChapter(), nil }}
	NewChapterController(context.Background(), store, provider, WithCountdown(1, 10*time.Millisecond))

	completeLastScene(store)

	time.Sleep(80 * time.Millisecond)
	if store.State().ShowChapterTransition {
		t.Error("transition raised without saga mode")
	}
	if got := provider.calls.Load(); got != 0 {
		t.Errorf("provider called %d times without saga mode", got)
	}
}
