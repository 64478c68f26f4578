package playback

import "time"

// Phase is the session-level presentation phase derived from the store
// state: Idle -> Active{Playing <-> Paused} -> {EndScreen | ChapterTransition}
// -> Active (next chapter) | Idle.
type Phase int

const (
	// PhaseIdle indicates no active session.
	PhaseIdle Phase = iota
	// PhasePlaying indicates scenes are advancing.
	PhasePlaying
	// PhasePaused indicates the session is active but paused.
	PhasePaused
	// PhaseEndScreen indicates the end-of-story screen is shown.
	PhaseEndScreen
	// PhaseChapterTransition indicates the saga-mode countdown is shown.
	PhaseChapterTransition
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	case PhaseEndScreen:
		return "end-screen"
	case PhaseChapterTransition:
		return "chapter-transition"
	default:
		return "unknown"
	}
}

// Session is the single source of truth for one playback session. It is
// owned and mutated exclusively by the Store; everything else reads copies.
type Session struct {
	ID            string
	Title         string
	Scenes        []Scene
	CurrentIndex  int
	ChapterNumber int

	IsActive             bool
	IsPlaying            bool
	IsStoryComplete      bool
	IsLoadingNextChapter bool
	IsPrefetching        bool
	PrefetchError        string

	// Presentation flags
	ControlsVisible       bool
	ShowSettings          bool
	ShowEndScreen         bool
	ShowChapterTransition bool
	TransitionCountdown   int
}

// Phase derives the presentation phase from the session flags. EndScreen and
// ChapterTransition are mutually exclusive by construction (gated on saga
// mode in the store).
func (s Session) Phase() Phase {
	switch {
	case !s.IsActive:
		return PhaseIdle
	case s.ShowChapterTransition:
		return PhaseChapterTransition
	case s.ShowEndScreen:
		return PhaseEndScreen
	case s.IsPlaying:
		return PhasePlaying
	default:
		return PhasePaused
	}
}

// CurrentScene returns the scene at the current index.
func (s Session) CurrentScene() (Scene, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Scenes) {
		return Scene{}, false
	}
	return s.Scenes[s.CurrentIndex], true
}

// NextScene returns the scene after the current one, if any.
func (s Session) NextScene() (Scene, bool) {
	i := s.CurrentIndex + 1
	if i < 1 || i >= len(s.Scenes) {
		return Scene{}, false
	}
	return s.Scenes[i], true
}

// IsLastScene reports whether the current scene is the last in the chapter.
func (s Session) IsLastScene() bool {
	return len(s.Scenes) > 0 && s.CurrentIndex == len(s.Scenes)-1
}

// CurrentImageReady reports whether the current scene's image can be shown.
func (s Session) CurrentImageReady() bool {
	cur, ok := s.CurrentScene()
	return ok && cur.ImageReady()
}

// NextSceneReady reports whether the next scene is fully ready to advance to.
func (s Session) NextSceneReady() bool {
	next, ok := s.NextScene()
	return ok && next.Ready()
}

// IsWaitingForImage reports whether playback is blocked on the current
// scene's image.
func (s Session) IsWaitingForImage() bool {
	cur, ok := s.CurrentScene()
	return ok && !cur.ImageReady()
}

// SceneDuration resolves how long the current scene stays on screen: the
// settings override when set, else the scene's own duration, else a fixed
// fallback.
func (s Session) SceneDuration(settings Settings) time.Duration {
	if settings.SceneDuration > 0 {
		return settings.SceneDuration
	}
	if cur, ok := s.CurrentScene(); ok && cur.Duration > 0 {
		return cur.Duration
	}
	return defaultSceneDuration
}
