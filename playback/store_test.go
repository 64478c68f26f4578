package playback

import (
	"testing"
	"time"
)

func TestEnterSeedsScenes(t *testing.T) {
	store := NewStore(DefaultSettings())
	scenes := []Scene{
		{NarrationText: "one", ImageURL: "https://img.test/0"},
		{NarrationText: "two", ImagePrompt: "a door"},
	}
	store.Enter("sess-1", "A Story", scenes, 0)

	state := store.State()
	if !state.IsActive || !state.IsPlaying {
		t.Fatalf("expected active playing session, got %+v", state)
	}
	if state.ChapterNumber != 1 {
		t.Errorf("ChapterNumber = %d, want 1", state.ChapterNumber)
	}
	if !state.ControlsVisible {
		t.Error("controls should be visible on entry")
	}
	if got := state.Scenes[0]; got.Index != 0 || got.ContentStatus != StatusReady || got.ImageStatus != StatusReady {
		t.Errorf("scene 0 seeded wrong: %+v", got)
	}
	if got := state.Scenes[1]; got.Index != 1 || got.ImageStatus != StatusPending {
		t.Errorf("scene 1 should have a pending image: %+v", got)
	}
}

func TestEnterClampsStartIndex(t *testing.T) {
	store := NewStore(DefaultSettings())
	store.Enter("sess-1", "", testScenes(2), 9)
	if got := store.State().CurrentIndex; got != 0 {
		t.Errorf("CurrentIndex = %d, want 0", got)
	}
}

func TestEnterRejectsEmptyScenes(t *testing.T) {
	store := NewStore(DefaultSettings())
	notified := 0
	store.Subscribe(func(Change) { notified++ })

	store.Enter("sess-1", "", nil, 0)

	if store.State().IsActive {
		t.Error("session active with no scenes")
	}
	if notified != 0 {
		t.Errorf("got %d notifications for a rejected enter, want 0", notified)
	}
}

func TestEnterIgnoredWhileActive(t *testing.T) {
	store := NewStore(DefaultSettings())
	store.Enter("first", "", testScenes(1), 0)
	store.Enter("second", "", testScenes(3), 0)

	state := store.State()
	if state.ID != "first" || len(state.Scenes) != 1 {
		t.Errorf("second enter should be ignored, got id=%q scenes=%d", state.ID, len(state.Scenes))
	}
}

func TestExitIsIdempotent(t *testing.T) {
	store := NewStore(DefaultSettings())
	exits := 0
	store.Subscribe(func(ch Change) {
		if ch.Kind == ChangeExited {
			exits++
		}
	})

	store.Enter("sess-1", "", testScenes(1), 0)
	store.Exit()
	store.Exit()

	if exits != 1 {
		t.Errorf("got %d exit notifications, want 1", exits)
	}
	if store.State().IsActive {
		t.Error("session still active after exit")
	}
}

func TestNextAndPrevBounds(t *testing.T) {
	store := NewStore(DefaultSettings())
	store.Enter("sess-1", "", testScenes(3), 0)

	store.Prev()
	if got := store.State().CurrentIndex; got != 0 {
		t.Errorf("Prev at first scene moved to %d", got)
	}

	store.Next()
	store.Next()
	if got := store.State().CurrentIndex; got != 2 {
		t.Fatalf("CurrentIndex = %d, want 2", got)
	}

	// Last scene with pause-on-end: playback stops and the end screen shows.
	store.Next()
	state := store.State()
	if state.CurrentIndex != 2 {
		t.Errorf("Next at last scene moved to %d", state.CurrentIndex)
	}
	if state.IsPlaying || !state.ShowEndScreen {
		t.Errorf("expected paused end screen, got playing=%v end=%v", state.IsPlaying, state.ShowEndScreen)
	}

	store.Prev()
	state = store.State()
	if state.CurrentIndex != 1 || state.ShowEndScreen {
		t.Errorf("Prev should clear end screen, got idx=%d end=%v", state.CurrentIndex, state.ShowEndScreen)
	}
}

func TestNextWithoutPauseOnEndIsNoOp(t *testing.T) {
	settings := DefaultSettings()
	settings.PauseOnEnd = false
	store := NewStore(settings)
	store.Enter("sess-1", "", testScenes(1), 0)

	notified := 0
	store.Subscribe(func(ch Change) {
		if ch.Kind == ChangeIndex {
			notified++
		}
	})
	store.Next()

	state := store.State()
	if notified != 0 || state.ShowEndScreen || !state.IsPlaying {
		t.Errorf("Next at last scene should be a no-op, got notified=%d state=%+v", notified, state)
	}
}

func TestNextInSagaSuppressesEndScreen(t *testing.T) {
	settings := DefaultSettings()
	settings.SagaMode = true
	store := NewStore(settings)
	store.Enter("sess-1", "", testScenes(1), 0)
	store.SetStoryComplete(true)

	store.Next()
	state := store.State()
	if state.IsPlaying {
		t.Error("playback should stop at the end of the chapter")
	}
	if state.ShowEndScreen {
		t.Error("saga mode should leave the end screen to the chapter transition")
	}
}

func TestGoToScene(t *testing.T) {
	store := NewStore(DefaultSettings())
	store.Enter("sess-1", "", testScenes(3), 0)

	for _, tc := range []struct {
		name   string
		target int
		want   int
	}{
		{"valid", 2, 2},
		{"negative", -1, 2},
		{"past end", 3, 2},
		{"back", 0, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store.GoToScene(tc.target)
			if got := store.State().CurrentIndex; got != tc.want {
				t.Errorf("CurrentIndex = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAddSceneAssignsIndexAndStatuses(t *testing.T) {
	store := NewStore(DefaultSettings())
	store.Enter("sess-1", "", testScenes(1), 0)

	store.AddScene(Scene{NarrationText: "more", ImagePrompt: "a bridge"})
	store.AddScene(Scene{NarrationText: "done", ImageURL: "https://img.test/x"})

	state := store.State()
	if len(state.Scenes) != 3 {
		t.Fatalf("got %d scenes, want 3", len(state.Scenes))
	}
	if got := state.Scenes[1]; got.Index != 1 || got.ImageStatus != StatusGenerating {
		t.Errorf("prompt-only scene: %+v", got)
	}
	if got := state.Scenes[2]; got.Index != 2 || got.ImageStatus != StatusReady {
		t.Errorf("scene with URL: %+v", got)
	}
}

func TestUpdateSceneImageByStableIndex(t *testing.T) {
	store := NewStore(DefaultSettings())
	store.Enter("sess-1", "", []Scene{{ImagePrompt: "a"}, {ImagePrompt: "b"}}, 0)

	store.UpdateSceneImage(1, "https://img.test/b")
	state := store.State()
	if got := state.Scenes[1]; got.ImageURL != "https://img.test/b" || got.ImageStatus != StatusReady {
		t.Errorf("scene 1 not updated: %+v", got)
	}
	if state.Scenes[0].ImageStatus != StatusPending {
		t.Errorf("scene 0 should be untouched: %+v", state.Scenes[0])
	}

	// Unknown index produces no notification.
	notified := 0
	store.Subscribe(func(ch Change) {
		if ch.Kind == ChangeImage {
			notified++
		}
	})
	store.UpdateSceneImage(9, "https://img.test/none")
	if notified != 0 {
		t.Errorf("unknown scene index produced %d notifications", notified)
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	store := NewStore(DefaultSettings())
	store.Enter("sess-1", "", []Scene{{ImagePrompt: "a"}}, 0)

	before := store.State()
	store.UpdateSceneImage(0, "https://img.test/a")

	if before.Scenes[0].ImageURL != "" {
		t.Error("earlier snapshot mutated by a later action")
	}
}

func TestUpdateSettings(t *testing.T) {
	store := NewStore(DefaultSettings())

	off := false
	store.UpdateSettings(SettingsPatch{NarrationEnabled: &off})
	if store.Settings().NarrationEnabled {
		t.Error("narration should be off")
	}

	// Invalid patches are rejected wholesale.
	bogus := "sideways"
	d := 10 * time.Second
	store.UpdateSettings(SettingsPatch{TextPosition: &bogus, SceneDuration: &d})
	settings := store.Settings()
	if settings.TextPosition == bogus {
		t.Error("invalid text position accepted")
	}
	if settings.SceneDuration == d {
		t.Error("partial application of an invalid patch")
	}
}

func TestStartNextChapterReplacesScenes(t *testing.T) {
	store := NewStore(DefaultSettings())
	store.Enter("sess-1", "Book One", testScenes(2), 1)
	store.SetStoryComplete(true)
	store.SetChapterTransition(true, 3)

	store.StartNextChapter("sess-2", "Book Two", testScenes(3), 2)

	state := store.State()
	if state.ID != "sess-2" || state.Title != "Book Two" {
		t.Errorf("identity not updated: %+v", state)
	}
	if len(state.Scenes) != 3 || state.CurrentIndex != 0 {
		t.Errorf("scenes not replaced: %d scenes at index %d", len(state.Scenes), state.CurrentIndex)
	}
	if state.ChapterNumber != 2 || !state.IsPlaying {
		t.Errorf("chapter not started: %+v", state)
	}
	if state.IsStoryComplete || state.ShowChapterTransition || state.IsLoadingNextChapter {
		t.Errorf("chapter flags not reset: %+v", state)
	}
}

func TestEndSessionShowsEndScreen(t *testing.T) {
	store := NewStore(DefaultSettings())
	store.Enter("sess-1", "", testScenes(1), 0)
	store.SetChapterTransition(true, 2)

	store.EndSession()
	state := store.State()
	if !state.IsActive {
		t.Error("session should stay active for the end screen")
	}
	if state.ShowChapterTransition || state.IsPlaying || !state.ShowEndScreen {
		t.Errorf("unexpected end state: %+v", state)
	}
}

func TestTouchAndHideControls(t *testing.T) {
	store := NewStore(DefaultSettings())
	store.Enter("sess-1", "", testScenes(1), 0)

	store.HideControls()
	if store.State().ControlsVisible {
		t.Fatal("controls should hide")
	}
	store.Touch()
	if !store.State().ControlsVisible {
		t.Fatal("touch should reveal controls")
	}
}

func TestReentrantActionsAreQueuedNotNested(t *testing.T) {
	store := NewStore(DefaultSettings())

	var kinds []ChangeKind
	store.Subscribe(func(ch Change) {
		kinds = append(kinds, ch.Kind)
		// Trigger a follow-up action from inside the notification.
		if ch.Kind == ChangeIndex {
			store.HideControls()
		}
	})

	store.Enter("sess-1", "", testScenes(2), 0)
	store.Next()

	want := []ChangeKind{ChangeEntered, ChangeIndex, ChangeFlags}
	if len(kinds) != len(want) {
		t.Fatalf("got kinds %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("notification %d = %v, want %v (order must be queued, not nested)", i, kinds[i], want[i])
		}
	}
}
