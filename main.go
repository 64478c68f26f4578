// Package main provides the entry point for the storycast CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/storycast/internal/cache"
	"github.com/dgnsrekt/storycast/internal/generate"
	"github.com/dgnsrekt/storycast/internal/images"
	"github.com/dgnsrekt/storycast/internal/storage"
	"github.com/dgnsrekt/storycast/playback"
	"github.com/dgnsrekt/storycast/speech"
	"github.com/dgnsrekt/storycast/speech/command"
	"github.com/dgnsrekt/storycast/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	seedPath     string
	mouse        bool
	sagaMode     bool
	noNarration  bool
	voiceName    string
	speechBinary string
	modelName    string
	styleHint    string

	rootCmd = &cobra.Command{
		Use:   "storycast [PREMISE]",
		Short: "Play AI-generated illustrated stories in your terminal",
		Long: "\nstorycast turns a one-line premise into a narrated, illustrated story.\n" +
			"Scenes are generated ahead of playback, images are fetched in the\n" +
			"background, and narration keeps pace with what is on screen.",
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			premise := ""
			if len(args) == 1 {
				premise = args[0]
			}
			return runPlayer(premise, seedPath, "")
		},
	}

	resumeCmd = &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Resume a saved story session",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPlayer("", "", args[0])
		},
	}

	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "List saved story sessions",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			st, err := storage.New(databasePath())
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			sessions, err := st.ListSessions()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No saved sessions. Play a story first.")
				return nil
			}
			for _, s := range sessions {
				title := s.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Printf("%s  %-30s  chapter %d, %d scenes, %s\n",
					s.ID, title, s.ChapterNumber, s.SceneCount, humanize.Time(s.UpdatedAt))
			}
			return nil
		},
	}
)

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	_ = godotenv.Load()
	tryLoadConfigFromDefaultPlaces()

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&seedPath, "seed", "f", "", "play a pre-authored story file instead of generating")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse support")
	rootCmd.Flags().BoolVar(&sagaMode, "saga", false, "continue into new chapters when the story ends")
	rootCmd.Flags().BoolVar(&noNarration, "no-narration", false, "disable spoken narration")
	rootCmd.Flags().StringVar(&voiceName, "voice", "", "speech voice to use")
	rootCmd.Flags().StringVar(&speechBinary, "speech-binary", "", "text-to-speech binary (default: first of say, espeak-ng, espeak, festival on PATH)")
	rootCmd.Flags().StringVar(&modelName, "model", "", "generation model name")
	rootCmd.Flags().StringVar(&styleHint, "style", "", "visual and narrative style hint for generation")
	_ = rootCmd.Flags().MarkHidden("mouse")

	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("model", rootCmd.Flags().Lookup("model"))
	viper.SetDefault("model", "gemini-2.5-flash")

	rootCmd.AddCommand(resumeCmd, sessionsCmd, settingsCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "storycast")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find the configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "storycast")}, dirs...)
	}
	if c := os.Getenv("STORYCAST_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("storycast")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("storycast")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}
	configFile = filepath.Join(dirs[0], "storycast.yml")
}

// setupLog routes logging to a file when STORYCAST_LOG is set and otherwise
// discards it, so nothing scribbles over the alt screen.
func setupLog() (func() error, error) {
	if path := os.Getenv("STORYCAST_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("unable to open log file: %w", err)
		}
		log.SetOutput(f)
		log.SetLevel(log.DebugLevel)
		return f.Close, nil
	}
	log.SetOutput(os.Stderr)
	log.SetLevel(log.FatalLevel)
	return func() error { return nil }, nil
}

func dataDir() (string, error) {
	scope := gap.NewScope(gap.User, "storycast")
	dirs, err := scope.DataDirs()
	if err != nil || len(dirs) == 0 {
		return "", fmt.Errorf("could not find the data directory: %w", err)
	}
	if err := os.MkdirAll(dirs[0], 0o755); err != nil {
		return "", fmt.Errorf("could not create the data directory: %w", err)
	}
	return dirs[0], nil
}

func databasePath() string {
	dir, err := dataDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "storycast.db")
}

func settingsPath() string {
	scope := gap.NewScope(gap.User, "storycast")
	dirs, err := scope.ConfigDirs()
	if err != nil || len(dirs) == 0 {
		return "settings.yml"
	}
	return filepath.Join(dirs[0], "settings.yml")
}

// loadSettings reads the persisted settings, seeding the file from the
// environment on first run.
func loadSettings(store *playback.ViperStore) (playback.Settings, error) {
	if _, err := os.Stat(store.Path()); errors.Is(err, os.ErrNotExist) {
		settings, err := env.ParseAs[playback.Settings]()
		if err != nil {
			return playback.DefaultSettings(), fmt.Errorf("error parsing settings from environment: %w", err)
		}
		if err := settings.Validate(); err != nil {
			return playback.DefaultSettings(), err
		}
		if err := store.Save(settings); err != nil {
			log.Warn("Could not write initial settings file", "err", err)
		}
		return settings, nil
	}
	return store.Load()
}

func runPlayer(premise, seedFile, resumeID string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgStore, err := playback.NewViperStore(settingsPath())
	if err != nil {
		return err
	}
	settings, err := loadSettings(cfgStore)
	if err != nil {
		log.Warn("Falling back to default settings", "err", err)
		settings = playback.DefaultSettings()
	}
	if sagaMode {
		settings.SagaMode = true
	}
	if noNarration {
		settings.NarrationEnabled = false
	}
	if voiceName != "" {
		settings.Voice = voiceName
	}

	store := playback.NewStore(settings)

	// Persist settings edits made in the player and pick up external file
	// edits while it runs.
	saver := playback.NewSettingsSaver(cfgStore, store, settings)
	defer saver.Close()
	stopWatch, err := cfgStore.Watch(store.ReplaceSettings)
	if err == nil {
		defer stopWatch()
	}

	st, err := storage.New(databasePath())
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	recorder := storage.NewRecorder(st, store)
	defer recorder.Close()

	playback.NewTimerAdvancer(store)

	if engine := buildSpeechEngine(settings); engine != nil {
		playback.NewNarrationSynchronizer(store, engine)
	}

	mem := cache.NewMemory(64 << 20)
	ensurer := images.New(ctx, store, mem)

	generator, err := buildGenerator(ctx, premise)
	if err != nil {
		return err
	}
	var prefetch *playback.PrefetchCoordinator
	var chapter *playback.ChapterController
	if generator != nil {
		defer generator.Close() //nolint:errcheck
		prefetch = playback.NewPrefetchCoordinator(ctx, store, generator,
			playback.WithImageEnsurer(ensurer))
		chapter = playback.NewChapterController(ctx, store, generator)
	} else {
		// No generator: the coordinator still warms images for seeded scenes.
		prefetch = playback.NewPrefetchCoordinator(ctx, store, nil,
			playback.WithImageEnsurer(ensurer))
	}

	if err := enterSession(ctx, store, st, generator, premise, seedFile, resumeID); err != nil {
		return err
	}

	if _, err := ui.NewProgram(ui.Config{
		Store:    store,
		Prefetch: prefetch,
		Chapter:  chapter,
		Mouse:    mouse || viper.GetBool("mouse"),
	}).Run(); err != nil {
		return fmt.Errorf("unable to run player: %w", err)
	}
	store.Exit()
	return nil
}

// buildSpeechEngine resolves a local text-to-speech engine, or nil when none
// is available. A missing engine only disables narration.
func buildSpeechEngine(settings playback.Settings) speech.Engine {
	engine, err := command.New(command.Config{Binary: speechBinary})
	if err != nil {
		if errors.Is(err, speech.ErrNotSupported) {
			log.Debug("no speech binary found, narration disabled")
		} else {
			log.Warn("speech engine unavailable", "err", err)
		}
		return nil
	}
	cfg := speech.DefaultVoiceConfig()
	cfg.Voice = settings.Voice
	cfg.Rate = settings.SpeechRate
	if err := engine.SetVoiceConfig(cfg); err != nil {
		log.Warn("voice configuration rejected", "err", err)
	}
	return engine
}

// buildGenerator creates the scene generator when an API key is configured.
// Without one, seed files and saved sessions still play.
func buildGenerator(ctx context.Context, premise string) (*generate.Generator, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, nil
	}
	model := modelName
	if model == "" {
		model = viper.GetString("model")
	}
	return generate.New(ctx, generate.Config{
		APIKey:  apiKey,
		Model:   model,
		Premise: premise,
		Style:   styleHint,
	})
}

func enterSession(ctx context.Context, store *playback.Store, st *storage.Storage, generator *generate.Generator, premise, seedFile, resumeID string) error {
	switch {
	case resumeID != "":
		rec, err := st.LoadSession(resumeID)
		if err != nil {
			return err
		}
		store.Enter(rec.ID, rec.Title, rec.Scenes, rec.CurrentIndex)
		if rec.ChapterNumber > 1 {
			store.StartNextChapter(rec.ID, rec.Title, rec.Scenes, rec.ChapterNumber)
			store.GoToScene(rec.CurrentIndex)
		}
		if rec.StoryComplete {
			store.SetStoryComplete(true)
		}
		return nil

	case seedFile != "":
		seed, err := playback.LoadSeed(seedFile)
		if err != nil {
			return err
		}
		store.Enter(uuid.NewString(), seed.Title, seed.Scenes, 0)
		return nil

	case generator != nil:
		fmt.Println("Writing the opening scene...")
		scene, err := generator.GenerateNext(ctx)
		if err != nil {
			return err
		}
		if scene == nil {
			return playback.ErrNoScenes
		}
		store.Enter(uuid.NewString(), titleFromPremise(premise), []playback.Scene{*scene}, 0)
		return nil

	default:
		return errors.New("nothing to play: pass a premise with GEMINI_API_KEY set, a --seed file, or resume a session")
	}
}

// titleFromPremise derives a short session title from the premise text.
func titleFromPremise(premise string) string {
	premise = strings.TrimSpace(premise)
	if premise == "" {
		return "Untitled story"
	}
	words := strings.Fields(premise)
	if len(words) > 6 {
		words = words[:6]
		return strings.Join(words, " ") + "…"
	}
	return strings.Join(words, " ")
}
