package playback

import (
	"testing"
	"time"
)

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"zero scene duration means per-scene", func(s *Settings) { s.SceneDuration = 0 }, false},
		{"negative scene duration", func(s *Settings) { s.SceneDuration = -time.Second }, true},
		{"negative transition", func(s *Settings) { s.TransitionDuration = -1 }, true},
		{"bad text position", func(s *Settings) { s.TextPosition = "diagonal" }, true},
		{"bad text size", func(s *Settings) { s.TextSize = "huge" }, true},
		{"speech rate too low", func(s *Settings) { s.SpeechRate = 0.05 }, true},
		{"speech rate too high", func(s *Settings) { s.SpeechRate = 4 }, true},
		{"negative hide delay", func(s *Settings) { s.ControlsHideDelay = -time.Second }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultSettings()
			tc.mutate(&s)
			err := s.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSettingsPatchApply(t *testing.T) {
	base := DefaultSettings()

	if got := (SettingsPatch{}).Apply(base); got != base {
		t.Errorf("empty patch changed settings: %+v", got)
	}

	d := 12 * time.Second
	saga := true
	voice := "Daniel"
	got := SettingsPatch{SceneDuration: &d, SagaMode: &saga, Voice: &voice}.Apply(base)

	if got.SceneDuration != d || !got.SagaMode || got.Voice != "Daniel" {
		t.Errorf("patched fields not applied: %+v", got)
	}
	if got.NarrationEnabled != base.NarrationEnabled || got.TextPosition != base.TextPosition {
		t.Errorf("unpatched fields changed: %+v", got)
	}
}
