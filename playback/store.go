package playback

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Store owns the Session and the Settings. Every mutation goes through a
// named action; each action is atomic and notifications are delivered one at
// a time from a single dispatch loop. Actions triggered from inside a
// notification are queued, never nested, so subscribers always observe a
// consistent ordering of states.
type Store struct {
	mu        sync.Mutex
	session   Session
	settings  Settings
	subs      []Subscriber
	queue     []Change
	notifying bool
	logger    *log.Logger
}

// NewStore creates a store with the given settings.
func NewStore(settings Settings) *Store {
	return &Store{
		settings: settings,
		logger:   log.Default().WithPrefix("store"),
	}
}

// Subscribe registers a subscriber for all future changes.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// State returns a copy of the current session state.
func (s *Store) State() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Store) snapshotLocked() Session {
	snap := s.session
	snap.Scenes = make([]Scene, len(s.session.Scenes))
	copy(snap.Scenes, s.session.Scenes)
	return snap
}

// dispatch applies a mutation under the lock and queues a notification.
// The mutation returns false for no-op actions, which produce no
// notification. The first caller to enter the loop drains the whole queue;
// re-entrant actions only enqueue.
func (s *Store) dispatch(kind ChangeKind, mutate func() bool) {
	s.mu.Lock()
	if !mutate() {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, Change{Kind: kind, State: s.snapshotLocked(), Settings: s.settings})
	if s.notifying {
		s.mu.Unlock()
		return
	}
	s.notifying = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		subs := make([]Subscriber, len(s.subs))
		copy(subs, s.subs)
		s.mu.Unlock()
		for _, sub := range subs {
			sub(next)
		}
		s.mu.Lock()
	}
	s.notifying = false
	s.mu.Unlock()
}

// Enter creates a session from an initial chapter and starts playing.
// Seeded scenes have ready content; images are ready only when a URL is
// already present. An empty chapter is rejected, keeping the current index
// in bounds for every active session.
func (s *Store) Enter(sessionID, title string, scenes []Scene, startIndex int) {
	s.dispatch(ChangeEntered, func() bool {
		if s.session.IsActive {
			s.logger.Warn("enter ignored, session already active", "id", s.session.ID)
			return false
		}
		if len(scenes) == 0 {
			s.logger.Warn("enter ignored, no scenes", "id", sessionID)
			return false
		}
		seeded := make([]Scene, len(scenes))
		for i, sc := range scenes {
			sc.Index = i
			sc.ContentStatus = StatusReady
			if sc.ImageURL != "" {
				sc.ImageStatus = StatusReady
			} else {
				sc.ImageStatus = StatusPending
			}
			seeded[i] = sc
		}
		if startIndex < 0 || startIndex >= len(seeded) {
			startIndex = 0
		}
		s.session = Session{
			ID:              sessionID,
			Title:           title,
			Scenes:          seeded,
			CurrentIndex:    startIndex,
			ChapterNumber:   1,
			IsActive:        true,
			IsPlaying:       true,
			ControlsVisible: true,
		}
		s.logger.Debug("session entered", "id", sessionID, "scenes", len(seeded), "start", startIndex)
		return true
	})
}

// Exit tears the session down. Idempotent: a second call has no effect.
// Components subscribed to ChangeExited cancel their timers and utterances.
func (s *Store) Exit() {
	s.dispatch(ChangeExited, func() bool {
		if !s.session.IsActive {
			return false
		}
		id := s.session.ID
		s.session = Session{}
		s.logger.Debug("session exited", "id", id)
		return true
	})
}

// Play resumes playback.
func (s *Store) Play() {
	s.dispatch(ChangePlayback, func() bool {
		if !s.session.IsActive || s.session.IsPlaying {
			return false
		}
		s.session.IsPlaying = true
		return true
	})
}

// Pause suspends playback without losing position.
func (s *Store) Pause() {
	s.dispatch(ChangePlayback, func() bool {
		if !s.session.IsActive || !s.session.IsPlaying {
			return false
		}
		s.session.IsPlaying = false
		return true
	})
}

// TogglePlay flips between playing and paused.
func (s *Store) TogglePlay() {
	s.dispatch(ChangePlayback, func() bool {
		if !s.session.IsActive {
			return false
		}
		s.session.IsPlaying = !s.session.IsPlaying
		return true
	})
}

// Next advances to the next scene. On the last scene it either raises the
// end screen (pause-on-end, saga off) or is a no-op, relying on the prefetch
// coordinator to extend the sequence first.
func (s *Store) Next() {
	s.dispatch(ChangeIndex, func() bool {
		if !s.session.IsActive {
			return false
		}
		if s.session.CurrentIndex < len(s.session.Scenes)-1 {
			s.session.CurrentIndex++
			s.session.ShowEndScreen = false
			return true
		}
		if !s.settings.PauseOnEnd {
			return false
		}
		s.session.IsPlaying = false
		// Saga mode replaces the end screen with the chapter transition,
		// raised by the chapter controller once the story is complete.
		if !(s.settings.SagaMode && s.session.IsStoryComplete) {
			s.session.ShowEndScreen = true
		}
		return true
	})
}

// Prev moves back one scene. No-op at the first scene.
func (s *Store) Prev() {
	s.dispatch(ChangeIndex, func() bool {
		if !s.session.IsActive || s.session.CurrentIndex <= 0 {
			return false
		}
		s.session.CurrentIndex--
		s.session.ShowEndScreen = false
		return true
	})
}

// GoToScene seeks to an absolute index. No-op outside [0, len-1].
func (s *Store) GoToScene(i int) {
	s.dispatch(ChangeIndex, func() bool {
		if !s.session.IsActive || i < 0 || i >= len(s.session.Scenes) || i == s.session.CurrentIndex {
			return false
		}
		s.session.CurrentIndex = i
		s.session.ShowEndScreen = false
		return true
	})
}

// AddScene appends a generated scene. Content arrives ready; the image is
// ready only when a URL was supplied, otherwise it is marked generating to
// signal the image ensurer is expected to act.
func (s *Store) AddScene(scene Scene) {
	s.dispatch(ChangeScenes, func() bool {
		if !s.session.IsActive {
			return false
		}
		scene.Index = len(s.session.Scenes)
		scene.ContentStatus = StatusReady
		if scene.ImageURL != "" {
			scene.ImageStatus = StatusReady
		} else {
			scene.ImageStatus = StatusGenerating
		}
		scenes := make([]Scene, len(s.session.Scenes), len(s.session.Scenes)+1)
		copy(scenes, s.session.Scenes)
		s.session.Scenes = append(scenes, scene)
		s.logger.Debug("scene appended", "index", scene.Index)
		return true
	})
}

// UpdateSceneImage records the materialized image for a scene, matched by
// stable scene index.
func (s *Store) UpdateSceneImage(index int, url string) {
	s.dispatch(ChangeImage, func() bool {
		return s.patchSceneLocked(index, func(sc *Scene) {
			sc.ImageURL = url
			sc.ImageStatus = StatusReady
		})
	})
}

// SetImageStatus updates a scene's image lifecycle status, matched by stable
// scene index.
func (s *Store) SetImageStatus(index int, status AssetStatus) {
	s.dispatch(ChangeImage, func() bool {
		return s.patchSceneLocked(index, func(sc *Scene) {
			sc.ImageStatus = status
		})
	})
}

// patchSceneLocked finds a scene by its stable index and applies fn to a
// copy-on-write slice. Returns false when the session is inactive or the
// index is unknown.
func (s *Store) patchSceneLocked(index int, fn func(*Scene)) bool {
	if !s.session.IsActive {
		return false
	}
	for i := range s.session.Scenes {
		if s.session.Scenes[i].Index != index {
			continue
		}
		scenes := make([]Scene, len(s.session.Scenes))
		copy(scenes, s.session.Scenes)
		fn(&scenes[i])
		s.session.Scenes = scenes
		return true
	}
	s.logger.Warn("image update for unknown scene", "index", index)
	return false
}

// SetPrefetching flips the visible prefetch flag.
func (s *Store) SetPrefetching(v bool) {
	s.dispatch(ChangePrefetch, func() bool {
		if !s.session.IsActive || s.session.IsPrefetching == v {
			return false
		}
		s.session.IsPrefetching = v
		return true
	})
}

// SetPrefetchError records a user-facing generation error message. An empty
// message clears it.
func (s *Store) SetPrefetchError(msg string) {
	s.dispatch(ChangePrefetch, func() bool {
		if !s.session.IsActive || s.session.PrefetchError == msg {
			return false
		}
		s.session.PrefetchError = msg
		return true
	})
}

// SetStoryComplete marks that the generator has no further content.
func (s *Store) SetStoryComplete(v bool) {
	s.dispatch(ChangeChapter, func() bool {
		if !s.session.IsActive || s.session.IsStoryComplete == v {
			return false
		}
		s.session.IsStoryComplete = v
		return true
	})
}

// SetLoadingNextChapter flips the chapter-loading flag.
func (s *Store) SetLoadingNextChapter(v bool) {
	s.dispatch(ChangeChapter, func() bool {
		if !s.session.IsActive || s.session.IsLoadingNextChapter == v {
			return false
		}
		s.session.IsLoadingNextChapter = v
		return true
	})
}

// SetChapterTransition shows or hides the saga transition screen and resets
// the countdown display when hiding.
func (s *Store) SetChapterTransition(show bool, countdown int) {
	s.dispatch(ChangeChapter, func() bool {
		if !s.session.IsActive {
			return false
		}
		if s.session.ShowChapterTransition == show && s.session.TransitionCountdown == countdown {
			return false
		}
		s.session.ShowChapterTransition = show
		s.session.TransitionCountdown = countdown
		if show {
			s.session.ShowEndScreen = false
		}
		return true
	})
}

// StartNextChapter atomically replaces the scene list with the next
// chapter's scenes and restarts playback from the beginning.
func (s *Store) StartNextChapter(sessionID, title string, scenes []Scene, chapterNumber int) {
	s.dispatch(ChangeScenes, func() bool {
		if !s.session.IsActive || len(scenes) == 0 {
			return false
		}
		seeded := make([]Scene, len(scenes))
		for i, sc := range scenes {
			sc.Index = i
			sc.ContentStatus = StatusReady
			if sc.ImageURL != "" {
				sc.ImageStatus = StatusReady
			} else {
				sc.ImageStatus = StatusPending
			}
			seeded[i] = sc
		}
		s.session.ID = sessionID
		s.session.Title = title
		s.session.Scenes = seeded
		s.session.CurrentIndex = 0
		s.session.ChapterNumber = chapterNumber
		s.session.IsStoryComplete = false
		s.session.IsLoadingNextChapter = false
		s.session.ShowChapterTransition = false
		s.session.TransitionCountdown = 0
		s.session.ShowEndScreen = false
		s.session.PrefetchError = ""
		s.session.IsPlaying = true
		s.logger.Debug("next chapter started", "chapter", chapterNumber, "scenes", len(seeded))
		return true
	})
}

// EndSession is the clean end-of-saga path: the transition is dismissed and
// the session settles into the normal end-of-story presentation.
func (s *Store) EndSession() {
	s.dispatch(ChangeChapter, func() bool {
		if !s.session.IsActive {
			return false
		}
		s.session.ShowChapterTransition = false
		s.session.TransitionCountdown = 0
		s.session.IsLoadingNextChapter = false
		s.session.IsPlaying = false
		s.session.ShowEndScreen = s.settings.PauseOnEnd
		return true
	})
}

// UpdateSettings applies a partial settings update. Invalid results are
// rejected and logged.
func (s *Store) UpdateSettings(patch SettingsPatch) {
	s.dispatch(ChangeSettings, func() bool {
		next := patch.Apply(s.settings)
		if err := next.Validate(); err != nil {
			s.logger.Warn("settings update rejected", "err", err)
			return false
		}
		if next == s.settings {
			return false
		}
		s.settings = next
		return true
	})
}

// ReplaceSettings swaps the full settings object, used by the config store
// watcher when the settings file changes on disk.
func (s *Store) ReplaceSettings(settings Settings) {
	s.dispatch(ChangeSettings, func() bool {
		if err := settings.Validate(); err != nil {
			s.logger.Warn("settings replace rejected", "err", err)
			return false
		}
		if settings == s.settings {
			return false
		}
		s.settings = settings
		return true
	})
}

// ResetSettings restores defaults.
func (s *Store) ResetSettings() {
	s.dispatch(ChangeSettings, func() bool {
		def := DefaultSettings()
		if s.settings == def {
			return false
		}
		s.settings = def
		return true
	})
}

// Touch marks user activity, revealing the controls.
func (s *Store) Touch() {
	s.dispatch(ChangeFlags, func() bool {
		if !s.session.IsActive || s.session.ControlsVisible {
			return false
		}
		s.session.ControlsVisible = true
		return true
	})
}

// HideControls hides the on-screen controls after the auto-hide delay.
func (s *Store) HideControls() {
	s.dispatch(ChangeFlags, func() bool {
		if !s.session.IsActive || !s.session.ControlsVisible {
			return false
		}
		s.session.ControlsVisible = false
		return true
	})
}

// SetShowSettings toggles the settings panel flag.
func (s *Store) SetShowSettings(v bool) {
	s.dispatch(ChangeFlags, func() bool {
		if !s.session.IsActive || s.session.ShowSettings == v {
			return false
		}
		s.session.ShowSettings = v
		return true
	})
}
