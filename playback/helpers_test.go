package playback

import (
	"fmt"
	"testing"
	"time"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// testScenes builds n scenes with ready images and no narration.
func testScenes(n int) []Scene {
	scenes := make([]Scene, n)
	for i := range scenes {
		scenes[i] = Scene{
			ImagePrompt: fmt.Sprintf("prompt %d", i),
			ImageURL:    fmt.Sprintf("https://img.test/%d", i),
		}
	}
	return scenes
}

// narratedScenes builds n scenes with ready images and narration text.
func narratedScenes(n int) []Scene {
	scenes := testScenes(n)
	for i := range scenes {
		scenes[i].NarrationText = fmt.Sprintf("narration %d", i)
	}
	return scenes
}

// fastSettings returns settings tuned for timer tests: short durations,
// narration off, no auto-generation.
func fastSettings() Settings {
	s := DefaultSettings()
	s.SceneDuration = 25 * time.Millisecond
	s.NarrationEnabled = false
	s.AutoGenerate = false
	return s
}
