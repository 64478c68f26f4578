package playback

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ViperStore persists Settings as a yaml file through its own viper
// instance. It implements ConfigStore. Watch uses viper's fsnotify-backed
// file watching to report external edits.
type ViperStore struct {
	v    *viper.Viper
	path string
}

// NewViperStore creates a store backed by the settings file at path,
// creating the parent directory if needed.
func NewViperStore(path string) (*ViperStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating settings directory: %w", err)
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setSettingsDefaults(v)
	return &ViperStore{v: v, path: path}, nil
}

// Path returns the settings file location.
func (s *ViperStore) Path() string { return s.path }

// Load reads settings from disk, falling back to defaults when the file
// does not exist yet.
func (s *ViperStore) Load() (Settings, error) {
	if err := s.v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultSettings(), nil
		}
		return DefaultSettings(), fmt.Errorf("reading settings: %w", err)
	}
	cfg := settingsFromViper(s.v)
	if err := cfg.Validate(); err != nil {
		return DefaultSettings(), err
	}
	return cfg, nil
}

// Save writes the settings to disk.
func (s *ViperStore) Save(cfg Settings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.v.Set("scene_duration", cfg.SceneDuration.String())
	s.v.Set("transition_duration", cfg.TransitionDuration.String())
	s.v.Set("narration_enabled", cfg.NarrationEnabled)
	s.v.Set("text_position", cfg.TextPosition)
	s.v.Set("text_size", cfg.TextSize)
	s.v.Set("show_scene_number", cfg.ShowSceneNumber)
	s.v.Set("pause_on_end", cfg.PauseOnEnd)
	s.v.Set("saga_mode", cfg.SagaMode)
	s.v.Set("auto_generate", cfg.AutoGenerate)
	s.v.Set("controls_hide_delay", cfg.ControlsHideDelay.String())
	s.v.Set("voice", cfg.Voice)
	s.v.Set("speech_rate", cfg.SpeechRate)
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// Watch reports settings file changes until stop is called. Unparseable or
// invalid edits are ignored.
func (s *ViperStore) Watch(onChange func(Settings)) (func(), error) {
	stopped := make(chan struct{})
	s.v.OnConfigChange(func(fsnotify.Event) {
		select {
		case <-stopped:
			return
		default:
		}
		cfg := settingsFromViper(s.v)
		if err := cfg.Validate(); err != nil {
			return
		}
		onChange(cfg)
	})
	s.v.WatchConfig()
	return func() { close(stopped) }, nil
}

func setSettingsDefaults(v *viper.Viper) {
	def := DefaultSettings()
	v.SetDefault("scene_duration", def.SceneDuration.String())
	v.SetDefault("transition_duration", def.TransitionDuration.String())
	v.SetDefault("narration_enabled", def.NarrationEnabled)
	v.SetDefault("text_position", def.TextPosition)
	v.SetDefault("text_size", def.TextSize)
	v.SetDefault("show_scene_number", def.ShowSceneNumber)
	v.SetDefault("pause_on_end", def.PauseOnEnd)
	v.SetDefault("saga_mode", def.SagaMode)
	v.SetDefault("auto_generate", def.AutoGenerate)
	v.SetDefault("controls_hide_delay", def.ControlsHideDelay.String())
	v.SetDefault("voice", def.Voice)
	v.SetDefault("speech_rate", def.SpeechRate)
}

func settingsFromViper(v *viper.Viper) Settings {
	cfg := DefaultSettings()
	if d, err := time.ParseDuration(v.GetString("scene_duration")); err == nil {
		cfg.SceneDuration = d
	}
	if d, err := time.ParseDuration(v.GetString("transition_duration")); err == nil {
		cfg.TransitionDuration = d
	}
	cfg.NarrationEnabled = v.GetBool("narration_enabled")
	cfg.TextPosition = v.GetString("text_position")
	cfg.TextSize = v.GetString("text_size")
	cfg.ShowSceneNumber = v.GetBool("show_scene_number")
	cfg.PauseOnEnd = v.GetBool("pause_on_end")
	cfg.SagaMode = v.GetBool("saga_mode")
	cfg.AutoGenerate = v.GetBool("auto_generate")
	if d, err := time.ParseDuration(v.GetString("controls_hide_delay")); err == nil {
		cfg.ControlsHideDelay = d
	}
	cfg.Voice = v.GetString("voice")
	cfg.SpeechRate = v.GetFloat64("speech_rate")
	return cfg
}
