package playback

import "context"

// SceneGenerator produces the next scene of the running story. A nil scene
// with a nil error means the story has no more content; that is not an
// error. Called by the PrefetchCoordinator only.
type SceneGenerator interface {
	GenerateNext(ctx context.Context) (*Scene, error)
}

// ImageEnsurer materializes a scene's visual asset. Implementations are
// expected to eventually call back into the store's UpdateSceneImage or
// SetImageStatus for the scene's index. EnsureImage must be safe to call
// repeatedly for the same scene.
type ImageEnsurer interface {
	EnsureImage(scene Scene)
}

// Continuation is the payload for the next chapter of a saga.
type Continuation struct {
	SessionID     string
	Title         string
	ChapterNumber int
	Scenes        []Scene
}

// ContinuationProvider produces the next chapter when the current one is
// exhausted. A nil continuation with a nil error means there are no further
// chapters.
type ContinuationProvider interface {
	ContinueChapter(ctx context.Context) (*Continuation, error)
}

// ConfigStore persists user settings outside the core. Watch reports
// externally-applied changes (for example, edits to the settings file) until
// the returned stop function is called.
type ConfigStore interface {
	Load() (Settings, error)
	Save(Settings) error
	Watch(onChange func(Settings)) (stop func(), err error)
}
