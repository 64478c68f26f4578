package storage

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/storycast/playback"
)

// Recorder subscribes to playback changes and persists the session. Writes
// happen on a dedicated goroutine; the subscriber only records the latest
// snapshot, so it never blocks the dispatch loop on disk IO.
type Recorder struct {
	storage *Storage
	logger  *log.Logger

	mu      sync.Mutex
	pending *SessionRecord
	closed  bool
	kick    chan struct{}
	done    chan struct{}
}

// NewRecorder attaches a recorder to the playback store and starts its
// writer goroutine. Call Close when playback ends.
func NewRecorder(storage *Storage, store *playback.Store) *Recorder {
	r := &Recorder{
		storage: storage,
		logger:  log.Default().WithPrefix("storage"),
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	store.Subscribe(r.onChange)
	go r.writeLoop()
	return r
}

func (r *Recorder) onChange(change playback.Change) {
	switch change.Kind {
	case playback.ChangeEntered, playback.ChangeIndex, playback.ChangeScenes, playback.ChangeImage, playback.ChangeChapter:
	default:
		return
	}
	state := change.State
	if !state.IsActive || state.ID == "" {
		return
	}
	rec := SessionRecord{
		ID:            state.ID,
		Title:         state.Title,
		ChapterNumber: state.ChapterNumber,
		CurrentIndex:  state.CurrentIndex,
		StoryComplete: state.IsStoryComplete,
		Scenes:        state.Scenes,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.pending = &rec
	r.mu.Unlock()
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

func (r *Recorder) writeLoop() {
	for range r.kick {
		r.mu.Lock()
		rec := r.pending
		r.pending = nil
		r.mu.Unlock()
		if rec == nil {
			continue
		}
		if err := r.storage.SaveSession(*rec); err != nil {
			r.logger.Warn("could not persist session", "id", rec.ID, "err", err)
		}
	}
	close(r.done)
}

// Close flushes any pending snapshot and stops the writer.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	close(r.kick)
	<-r.done
	r.mu.Lock()
	rec := r.pending
	r.pending = nil
	r.mu.Unlock()
	if rec != nil {
		if err := r.storage.SaveSession(*rec); err != nil {
			r.logger.Warn("could not persist session", "id", rec.ID, "err", err)
		}
	}
}
