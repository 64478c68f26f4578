package playback

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// stubGenerator scripts GenerateNext for tests.
type stubGenerator struct {
	calls   atomic.Int64
	release chan struct{} // when non-nil, GenerateNext blocks until closed
	fn      func(call int64) (*Scene, error)
}

func (g *stubGenerator) GenerateNext(ctx context.Context) (*Scene, error) {
	call := g.calls.Add(1)
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.fn(call)
}

// stubEnsurer records EnsureImage calls.
type stubEnsurer struct {
	calls atomic.Int64
}

func (e *stubEnsurer) EnsureImage(Scene) { e.calls.Add(1) }

func prefetchSettings() Settings {
	s := DefaultSettings()
	s.NarrationEnabled = false
	s.SceneDuration = time.Hour // keep the timer out of these tests
	return s
}

func TestPrefetchExtendsOnLastScene(t *testing.T) {
	store := NewStore(prefetchSettings())
	gen := &stubGenerator{fn: func(int64) (*Scene, error) {
		return &Scene{NarrationText: "more", ImageURL: "https://img.test/gen"}, nil
	}}
	NewPrefetchCoordinator(context.Background(), store, gen, WithMaxScenes(2))

	store.Enter("sess-1", "", testScenes(1), 0)

	waitFor(t, time.Second, "generated scene appended", func() bool {
		s := store.State()
		return len(s.Scenes) == 2 && !s.IsPrefetching
	})
	if got := store.State().Scenes[1]; got.Index != 1 || got.NarrationText != "more" {
		t.Errorf("appended scene wrong: %+v", got)
	}
	// The cap stops further growth.
	time.Sleep(50 * time.Millisecond)
	if got := len(store.State().Scenes); got != 2 {
		t.Errorf("grew past max scenes: %d", got)
	}
}

func TestPrefetchSingleFlight(t *testing.T) {
	store := NewStore(prefetchSettings())
	release := make(chan struct{})
	gen := &stubGenerator{
		release: release,
		fn: func(int64) (*Scene, error) {
			return &Scene{NarrationText: "slow", ImageURL: "https://img.test/slow"}, nil
		},
	}
	NewPrefetchCoordinator(context.Background(), store, gen, WithMaxScenes(2))

	store.Enter("sess-1", "", testScenes(1), 0)

	// Pile on state changes while the generation call is outstanding.
	for i := 0; i < 5; i++ {
		store.Pause()
		store.Play()
	}
	time.Sleep(20 * time.Millisecond)
	if got := gen.calls.Load(); got != 1 {
		t.Fatalf("generator called %d times while in flight, want 1", got)
	}

	close(release)
	waitFor(t, time.Second, "generation to finish", func() bool {
		return len(store.State().Scenes) == 2
	})
}

func TestPrefetchErrorIsRecoverable(t *testing.T) {
	store := NewStore(prefetchSettings())
	gen := &stubGenerator{fn: func(call int64) (*Scene, error) {
		if call == 1 {
			return nil, errors.New("model unavailable")
		}
		return &Scene{NarrationText: "recovered", ImageURL: "https://img.test/r"}, nil
	}}
	coordinator := NewPrefetchCoordinator(context.Background(), store, gen, WithMaxScenes(2))

	store.Enter("sess-1", "", testScenes(1), 0)

	waitFor(t, time.Second, "user-facing error message", func() bool {
		return store.State().PrefetchError != ""
	})
	if got := len(store.State().Scenes); got != 1 {
		t.Fatalf("scene appended despite error: %d", got)
	}

	coordinator.Retry()
	waitFor(t, time.Second, "retry to append the scene", func() bool {
		s := store.State()
		return len(s.Scenes) == 2 && s.PrefetchError == ""
	})
}

func TestPrefetchExhaustionMarksStoryComplete(t *testing.T) {
	store := NewStore(prefetchSettings())
	gen := &stubGenerator{fn: func(int64) (*Scene, error) { return nil, nil }}
	NewPrefetchCoordinator(context.Background(), store, gen)

	store.Enter("sess-1", "", testScenes(1), 0)

	waitFor(t, time.Second, "story marked complete", func() bool {
		return store.State().IsStoryComplete
	})
	// Completion disarms the trigger.
	time.Sleep(50 * time.Millisecond)
	if got := gen.calls.Load(); got != 1 {
		t.Errorf("generator called %d times after exhaustion, want 1", got)
	}
}

func TestPrefetchRespectsAutoGenerateOff(t *testing.T) {
	settings := prefetchSettings()
	settings.AutoGenerate = false
	store := NewStore(settings)
	gen := &stubGenerator{fn: func(int64) (*Scene, error) {
		t.Error("generator called with auto-generate off")
		return nil, nil
	}}
	NewPrefetchCoordinator(context.Background(), store, gen)

	store.Enter("sess-1", "", testScenes(1), 0)
	time.Sleep(50 * time.Millisecond)
}

func TestPrefetchOnlyTriggersOnLastScene(t *testing.T) {
	store := NewStore(prefetchSettings())
	gen := &stubGenerator{fn: func(int64) (*Scene, error) {
		t.Error("generator called away from the last scene")
		return nil, nil
	}}
	NewPrefetchCoordinator(context.Background(), store, gen)

	store.Enter("sess-1", "", testScenes(3), 0)
	time.Sleep(50 * time.Millisecond)
}

func TestPrefetchWarmsCurrentAndNextImages(t *testing.T) {
	settings := prefetchSettings()
	settings.AutoGenerate = false
	store := NewStore(settings)
	ensurer := &stubEnsurer{}
	NewPrefetchCoordinator(context.Background(), store, nil, WithImageEnsurer(ensurer))

	scenes := testScenes(3)
	scenes[0].ImageURL = ""
	scenes[1].ImageURL = ""
	store.Enter("sess-1", "", scenes, 0)

	// Both the on-screen scene and the upcoming one are requested.
	if got := ensurer.calls.Load(); got < 2 {
		t.Errorf("EnsureImage called %d times, want at least 2", got)
	}
}
