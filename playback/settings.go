package playback

import (
	"fmt"
	"time"
)

// Text placement options for narration overlay.
const (
	TextPositionBottom = "bottom"
	TextPositionTop    = "top"
	TextPositionCenter = "center"
)

// Text size options for narration overlay.
const (
	TextSizeSmall  = "small"
	TextSizeMedium = "medium"
	TextSizeLarge  = "large"
)

// defaultSceneDuration is used when neither the settings override nor the
// scene itself carries a duration.
const defaultSceneDuration = 8 * time.Second

// Settings holds the user-editable playback configuration. A zero
// SceneDuration means "use each scene's own duration".
type Settings struct {
	SceneDuration      time.Duration `yaml:"scene_duration" env:"STORYCAST_SCENE_DURATION" envDefault:"0s"`
	TransitionDuration time.Duration `yaml:"transition_duration" env:"STORYCAST_TRANSITION_DURATION" envDefault:"600ms"`
	NarrationEnabled   bool          `yaml:"narration_enabled" env:"STORYCAST_NARRATION" envDefault:"true"`
	TextPosition       string        `yaml:"text_position" env:"STORYCAST_TEXT_POSITION" envDefault:"bottom"`
	TextSize           string        `yaml:"text_size" env:"STORYCAST_TEXT_SIZE" envDefault:"medium"`
	ShowSceneNumber    bool          `yaml:"show_scene_number" env:"STORYCAST_SHOW_SCENE_NUMBER" envDefault:"true"`
	PauseOnEnd         bool          `yaml:"pause_on_end" env:"STORYCAST_PAUSE_ON_END" envDefault:"true"`
	SagaMode           bool          `yaml:"saga_mode" env:"STORYCAST_SAGA_MODE" envDefault:"false"`
	AutoGenerate       bool          `yaml:"auto_generate" env:"STORYCAST_AUTO_GENERATE" envDefault:"true"`
	ControlsHideDelay  time.Duration `yaml:"controls_hide_delay" env:"STORYCAST_CONTROLS_HIDE_DELAY" envDefault:"3s"`
	Voice              string        `yaml:"voice" env:"STORYCAST_VOICE"`
	SpeechRate         float64       `yaml:"speech_rate" env:"STORYCAST_SPEECH_RATE" envDefault:"1.0"`
}

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		SceneDuration:      0,
		TransitionDuration: 600 * time.Millisecond,
		NarrationEnabled:   true,
		TextPosition:       TextPositionBottom,
		TextSize:           TextSizeMedium,
		ShowSceneNumber:    true,
		PauseOnEnd:         true,
		SagaMode:           false,
		AutoGenerate:       true,
		ControlsHideDelay:  3 * time.Second,
		SpeechRate:         1.0,
	}
}

// Validate checks the settings for out-of-range values.
func (s Settings) Validate() error {
	if s.SceneDuration < 0 {
		return fmt.Errorf("%w: scene_duration must not be negative", ErrInvalidSettings)
	}
	if s.TransitionDuration < 0 {
		return fmt.Errorf("%w: transition_duration must not be negative", ErrInvalidSettings)
	}
	switch s.TextPosition {
	case TextPositionBottom, TextPositionTop, TextPositionCenter:
	default:
		return fmt.Errorf("%w: unknown text_position %q", ErrInvalidSettings, s.TextPosition)
	}
	switch s.TextSize {
	case TextSizeSmall, TextSizeMedium, TextSizeLarge:
	default:
		return fmt.Errorf("%w: unknown text_size %q", ErrInvalidSettings, s.TextSize)
	}
	if s.SpeechRate < 0.1 || s.SpeechRate > 3.0 {
		return fmt.Errorf("%w: speech_rate must be between 0.1 and 3.0, got %.2f", ErrInvalidSettings, s.SpeechRate)
	}
	if s.ControlsHideDelay < 0 {
		return fmt.Errorf("%w: controls_hide_delay must not be negative", ErrInvalidSettings)
	}
	return nil
}

// SettingsPatch carries a partial settings update. Nil fields are left
// untouched by Apply.
type SettingsPatch struct {
	SceneDuration      *time.Duration
	TransitionDuration *time.Duration
	NarrationEnabled   *bool
	TextPosition       *string
	TextSize           *string
	ShowSceneNumber    *bool
	PauseOnEnd         *bool
	SagaMode           *bool
	AutoGenerate       *bool
	ControlsHideDelay  *time.Duration
	Voice              *string
	SpeechRate         *float64
}

// Apply overlays the patch onto the settings and returns the result.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.SceneDuration != nil {
		s.SceneDuration = *p.SceneDuration
	}
	if p.TransitionDuration != nil {
		s.TransitionDuration = *p.TransitionDuration
	}
	if p.NarrationEnabled != nil {
		s.NarrationEnabled = *p.NarrationEnabled
	}
	if p.TextPosition != nil {
		s.TextPosition = *p.TextPosition
	}
	if p.TextSize != nil {
		s.TextSize = *p.TextSize
	}
	if p.ShowSceneNumber != nil {
		s.ShowSceneNumber = *p.ShowSceneNumber
	}
	if p.PauseOnEnd != nil {
		s.PauseOnEnd = *p.PauseOnEnd
	}
	if p.SagaMode != nil {
		s.SagaMode = *p.SagaMode
	}
	if p.AutoGenerate != nil {
		s.AutoGenerate = *p.AutoGenerate
	}
	if p.ControlsHideDelay != nil {
		s.ControlsHideDelay = *p.ControlsHideDelay
	}
	if p.Voice != nil {
		s.Voice = *p.Voice
	}
	if p.SpeechRate != nil {
		s.SpeechRate = *p.SpeechRate
	}
	return s
}
