package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/storycast/playback"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSaveAndLoadSession(t *testing.T) {
	st := openTestStorage(t)

	rec := SessionRecord{
		ID:            "sess-1",
		Title:         "The Lighthouse",
		ChapterNumber: 2,
		CurrentIndex:  1,
		StoryComplete: true,
		Scenes: []playback.Scene{
			{Index: 0, NarrationText: "one", ImagePrompt: "p0", Duration: 6 * time.Second, ImageURL: "https://img.test/0"},
			{Index: 1, NarrationText: "two", ImagePrompt: "p1", NegativePrompt: "blurry", Duration: 8 * time.Second},
		},
	}
	if err := st.SaveSession(rec); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := st.LoadSession("sess-1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.Title != rec.Title || got.ChapterNumber != 2 || got.CurrentIndex != 1 || !got.StoryComplete {
		t.Errorf("session fields wrong: %+v", got)
	}
	if len(got.Scenes) != 2 {
		t.Fatalf("got %d scenes", len(got.Scenes))
	}
	s0, s1 := got.Scenes[0], got.Scenes[1]
	if s0.NarrationText != "one" || s0.Duration != 6*time.Second || s0.ImageURL == "" {
		t.Errorf("scene 0 wrong: %+v", s0)
	}
	if s1.NegativePrompt != "blurry" {
		t.Errorf("scene 1 wrong: %+v", s1)
	}
	// Loaded scenes come back playable: content ready, image ready only with
	// a URL.
	if s0.ContentStatus != playback.StatusReady || s0.ImageStatus != playback.StatusReady {
		t.Errorf("scene 0 statuses wrong: %+v", s0)
	}
	if s1.ImageStatus == playback.StatusReady {
		t.Errorf("scene 1 without a URL should not be image-ready: %+v", s1)
	}
}

func TestSaveSessionPrunesRemovedScenes(t *testing.T) {
	st := openTestStorage(t)

	long := SessionRecord{ID: "sess-1", Scenes: []playback.Scene{
		{Index: 0, NarrationText: "a"},
		{Index: 1, NarrationText: "b"},
		{Index: 2, NarrationText: "c"},
	}}
	if err := st.SaveSession(long); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	// A chapter swap saves fewer scenes; stale rows must go.
	short := SessionRecord{ID: "sess-1", ChapterNumber: 2, Scenes: []playback.Scene{
		{Index: 0, NarrationText: "fresh"},
	}}
	if err := st.SaveSession(short); err != nil {
		t.Fatalf("SaveSession (short): %v", err)
	}

	got, err := st.LoadSession("sess-1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if len(got.Scenes) != 1 || got.Scenes[0].NarrationText != "fresh" {
		t.Errorf("stale scenes survived: %+v", got.Scenes)
	}
}

func TestLoadSessionNotFound(t *testing.T) {
	st := openTestStorage(t)
	if _, err := st.LoadSession("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestListSessionsMostRecentFirst(t *testing.T) {
	st := openTestStorage(t)

	_ = st.SaveSession(SessionRecord{ID: "old", Title: "Old", Scenes: []playback.Scene{{Index: 0}}})
	time.Sleep(5 * time.Millisecond)
	_ = st.SaveSession(SessionRecord{ID: "new", Title: "New", Scenes: []playback.Scene{{Index: 0}, {Index: 1}}})

	sessions, err := st.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions", len(sessions))
	}
	if sessions[0].ID != "new" || sessions[1].ID != "old" {
		t.Errorf("order wrong: %s, %s", sessions[0].ID, sessions[1].ID)
	}
	if sessions[0].SceneCount != 2 {
		t.Errorf("SceneCount = %d, want 2", sessions[0].SceneCount)
	}
}

func TestDeleteSession(t *testing.T) {
	st := openTestStorage(t)
	_ = st.SaveSession(SessionRecord{ID: "sess-1", Scenes: []playback.Scene{{Index: 0}}})

	if err := st.DeleteSession("sess-1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := st.LoadSession("sess-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("session still present after delete: %v", err)
	}
}

func TestRecorderPersistsOnChanges(t *testing.T) {
	st := openTestStorage(t)

	store := playback.NewStore(playback.DefaultSettings())
	recorder := NewRecorder(st, store)

	store.Enter("sess-1", "Recorded", []playback.Scene{
		{NarrationText: "one", ImageURL: "https://img.test/0"},
		{NarrationText: "two", ImageURL: "https://img.test/1"},
	}, 0)
	store.Next()

	recorder.Close() // flushes the pending snapshot

	got, err := st.LoadSession("sess-1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.Title != "Recorded" || got.CurrentIndex != 1 || len(got.Scenes) != 2 {
		t.Errorf("recorded state wrong: %+v", got)
	}
}
