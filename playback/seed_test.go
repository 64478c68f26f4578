package playback

import (
	"errors"
	"testing"
	"time"
)

func TestParseSeed(t *testing.T) {
	data := []byte(`
title: The Lighthouse
scenes:
  - narration: "The keeper climbed the stairs."
    image_prompt: "a lighthouse at dusk"
    duration: 6s
  - narration: "The lamp went dark."
    image_prompt: "a dark lighthouse"
    image_url: "https://img.test/lamp"
`)
	seed, err := ParseSeed(data)
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if seed.Title != "The Lighthouse" {
		t.Errorf("Title = %q", seed.Title)
	}
	if len(seed.Scenes) != 2 {
		t.Fatalf("got %d scenes", len(seed.Scenes))
	}
	if seed.Scenes[0].Index != 0 || seed.Scenes[1].Index != 1 {
		t.Errorf("indices not assigned by position: %d, %d", seed.Scenes[0].Index, seed.Scenes[1].Index)
	}
	if seed.Scenes[0].Duration != 6*time.Second {
		t.Errorf("Duration = %v, want 6s", seed.Scenes[0].Duration)
	}
	if seed.Scenes[1].ImageURL == "" {
		t.Error("image_url not parsed")
	}
}

func TestParseSeedEmpty(t *testing.T) {
	if _, err := ParseSeed([]byte("title: Nothing\nscenes: []\n")); !errors.Is(err, ErrEmptySeed) {
		t.Errorf("err = %v, want ErrEmptySeed", err)
	}
}

func TestParseSeedMalformed(t *testing.T) {
	if _, err := ParseSeed([]byte("scenes: {not: [valid")); err == nil {
		t.Error("expected a parse error")
	}
}
