package playback

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Seed is a pre-authored story file: a title plus a list of scenes playable
// without a generator.
type Seed struct {
	Title  string
	Scenes []Scene
}

// seedScene is the on-disk scene shape. Durations are written as strings
// ("6s", "1m30s") and parsed with time.ParseDuration.
type seedScene struct {
	Narration      string `yaml:"narration"`
	ImagePrompt    string `yaml:"image_prompt"`
	NegativePrompt string `yaml:"negative_prompt"`
	Duration       string `yaml:"duration"`
	ImageURL       string `yaml:"image_url"`
}

type seedFile struct {
	Title  string      `yaml:"title"`
	Scenes []seedScene `yaml:"scenes"`
}

// LoadSeed reads a story seed from a yaml file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed yaml. Scene indices are assigned by position.
func ParseSeed(data []byte) (*Seed, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	if len(file.Scenes) == 0 {
		return nil, ErrEmptySeed
	}

	seed := &Seed{Title: file.Title}
	for i, sc := range file.Scenes {
		scene := Scene{
			Index:          i,
			NarrationText:  sc.Narration,
			ImagePrompt:    sc.ImagePrompt,
			NegativePrompt: sc.NegativePrompt,
			ImageURL:       sc.ImageURL,
		}
		if sc.Duration != "" {
			d, err := time.ParseDuration(sc.Duration)
			if err != nil {
				return nil, fmt.Errorf("scene %d has a bad duration %q: %w", i, sc.Duration, err)
			}
			scene.Duration = d
		}
		seed.Scenes = append(seed.Scenes, scene)
	}
	return seed, nil
}
