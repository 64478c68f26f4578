package playback

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultCountdownSeconds is how long the chapter transition counts down
// before continuing automatically.
const DefaultCountdownSeconds = 5

// ChapterController handles saga mode: when the story is complete and the
// last scene has played out, it raises a transition screen with a cancellable
// countdown and then asks the continuation provider for the next chapter.
type ChapterController struct {
	store    *Store
	provider ContinuationProvider
	logger   *log.Logger
	ctx      context.Context

	countdownFrom int
	tickEvery     time.Duration

	mu        sync.Mutex
	running   bool
	paused    bool
	starting  bool // guards double continuation
	exhausted bool // a continuation attempt came back empty; do not re-raise
	remaining int
	stopCh    chan struct{}
}

// ChapterOption configures the controller.
type ChapterOption func(*ChapterController)

// WithCountdown overrides the countdown length and tick interval. Tests use
// a short interval; production keeps one second.
func WithCountdown(seconds int, tick time.Duration) ChapterOption {
	return func(c *ChapterController) {
		c.countdownFrom = seconds
		c.tickEvery = tick
	}
}

// NewChapterController creates the controller and subscribes it to the
// store.
func NewChapterController(ctx context.Context, store *Store, provider ContinuationProvider, opts ...ChapterOption) *ChapterController {
	c := &ChapterController{
		store:         store,
		provider:      provider,
		logger:        log.Default().WithPrefix("chapter"),
		ctx:           ctx,
		countdownFrom: DefaultCountdownSeconds,
		tickEvery:     time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	store.Subscribe(c.onChange)
	return c
}

func (c *ChapterController) onChange(ch Change) {
	switch ch.Kind {
	case ChangeExited:
		c.stopCountdown()
		c.mu.Lock()
		c.exhausted = false
		c.mu.Unlock()
		return
	case ChangeEntered:
		c.mu.Lock()
		c.exhausted = false
		c.mu.Unlock()
	}

	state := ch.State
	show := state.IsActive &&
		state.IsStoryComplete &&
		ch.Settings.SagaMode &&
		state.IsLastScene() &&
		c.provider != nil

	c.mu.Lock()
	running := c.running
	// Once the provider has reported no further chapters, the trigger state
	// persists through the end screen; do not raise the transition again.
	show = show && !c.exhausted
	c.mu.Unlock()

	if show && !running && !state.ShowChapterTransition {
		c.beginCountdown()
		return
	}
	if running && !state.IsActive {
		c.stopCountdown()
	}
}

// beginCountdown raises the transition screen and starts ticking.
func (c *ChapterController) beginCountdown() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.paused = false
	c.starting = false
	c.remaining = c.countdownFrom
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	c.logger.Debug("chapter transition raised", "countdown", c.countdownFrom)
	c.store.SetChapterTransition(true, c.countdownFrom)

	go c.countdownLoop(stopCh)
}

func (c *ChapterController) countdownLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(c.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.paused || c.starting {
				c.mu.Unlock()
				continue
			}
			c.remaining--
			remaining := c.remaining
			c.mu.Unlock()

			if remaining > 0 {
				c.store.SetChapterTransition(true, remaining)
				continue
			}
			c.startContinuation()
			return
		}
	}
}

// StartNow skips the rest of the countdown and continues immediately.
func (c *ChapterController) StartNow() {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		return
	}
	c.startContinuation()
}

// ToggleCountdownPause freezes or unfreezes the countdown without
// cancelling it.
func (c *ChapterController) ToggleCountdownPause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.starting {
		return
	}
	c.paused = !c.paused
}

// StopTransition cancels the transition and exits the whole session. The
// continuation provider is never invoked on this path.
func (c *ChapterController) StopTransition() {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		return
	}
	c.stopCountdown()
	c.store.Exit()
}

// startContinuation invokes the provider exactly once per transition.
func (c *ChapterController) startContinuation() {
	c.mu.Lock()
	if c.starting || !c.running {
		c.mu.Unlock()
		return
	}
	c.starting = true
	c.mu.Unlock()

	c.store.SetLoadingNextChapter(true)
	c.logger.Debug("requesting next chapter")

	go func() {
		cont, err := c.provider.ContinueChapter(c.ctx)

		state := c.store.State()
		if !state.IsActive {
			c.stopCountdown()
			return
		}

		switch {
		case err != nil:
			// Treated as "no continuation available", not fatal.
			c.logger.Warn("continuation failed", "err", err)
			c.finish(false, nil)
		case cont == nil || len(cont.Scenes) == 0:
			c.logger.Debug("no further chapters")
			c.finish(false, nil)
		default:
			c.finish(true, cont)
		}
	}()
}

func (c *ChapterController) finish(ok bool, cont *Continuation) {
	c.stopCountdown()
	if ok {
		c.store.StartNextChapter(cont.SessionID, cont.Title, cont.Scenes, cont.ChapterNumber)
		return
	}
	c.mu.Lock()
	c.exhausted = true
	c.mu.Unlock()
	c.store.EndSession()
}

// stopCountdown halts the ticker goroutine and resets the guards.
func (c *ChapterController) stopCountdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	c.paused = false
	c.starting = false
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
}
