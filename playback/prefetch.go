package playback

import (
	"context"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// DefaultMaxScenes caps how far a chapter grows through auto-generation.
const DefaultMaxScenes = 60

// PrefetchCoordinator requests additional scenes from the generator while
// the last scene plays. Single-flight: the in-flight guard is checked and
// taken synchronously inside the dispatch loop, before any state mutation or
// awaiting, so trigger conditions holding across many state changes still
// produce exactly one outstanding generation call.
type PrefetchCoordinator struct {
	store     *Store
	generator SceneGenerator
	ensurer   ImageEnsurer
	maxScenes int
	logger    *log.Logger
	ctx       context.Context

	inFlight atomic.Bool
}

// PrefetchOption configures the coordinator.
type PrefetchOption func(*PrefetchCoordinator)

// WithMaxScenes overrides the chapter growth cap.
func WithMaxScenes(n int) PrefetchOption {
	return func(p *PrefetchCoordinator) { p.maxScenes = n }
}

// WithImageEnsurer attaches the collaborator that materializes scene images
// for the current and next scene.
func WithImageEnsurer(e ImageEnsurer) PrefetchOption {
	return func(p *PrefetchCoordinator) { p.ensurer = e }
}

// NewPrefetchCoordinator creates the coordinator and subscribes it to the
// store. ctx bounds generator calls; an exited session makes their eventual
// resolution a no-op regardless.
func NewPrefetchCoordinator(ctx context.Context, store *Store, generator SceneGenerator, opts ...PrefetchOption) *PrefetchCoordinator {
	p := &PrefetchCoordinator{
		store:     store,
		generator: generator,
		maxScenes: DefaultMaxScenes,
		logger:    log.Default().WithPrefix("prefetch"),
		ctx:       ctx,
	}
	for _, opt := range opts {
		opt(p)
	}
	store.Subscribe(p.onChange)
	return p
}

func (p *PrefetchCoordinator) onChange(ch Change) {
	switch ch.Kind {
	case ChangeEntered, ChangePlayback, ChangeIndex, ChangeScenes,
		ChangeImage, ChangeSettings, ChangePrefetch, ChangeChapter:
	default:
		return
	}
	p.warmImages(ch.State)
	p.evaluate(ch.State, ch.Settings)
}

// warmImages asks the ensurer for the current scene's image and prefetches
// the next scene's image while the current one is on screen.
func (p *PrefetchCoordinator) warmImages(state Session) {
	if p.ensurer == nil || !state.IsActive {
		return
	}
	if cur, ok := state.CurrentScene(); ok && !cur.ImageReady() && cur.ImageStatus != StatusError {
		p.ensurer.EnsureImage(cur)
	}
	if next, ok := state.NextScene(); ok && !next.ImageReady() && next.ImageStatus != StatusError {
		p.ensurer.EnsureImage(next)
	}
}

func (p *PrefetchCoordinator) evaluate(state Session, settings Settings) {
	if p.generator == nil {
		return
	}
	eligible := state.IsActive &&
		state.IsPlaying &&
		state.IsLastScene() &&
		len(state.Scenes) < p.maxScenes &&
		!state.IsPrefetching &&
		!state.IsStoryComplete &&
		settings.AutoGenerate
	if !eligible {
		return
	}
	// The guard is taken before any state mutation; losing the race means a
	// generation call is already outstanding.
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}

	p.store.SetPrefetching(true)
	p.store.SetPrefetchError("")
	p.logger.Debug("generation started", "scenes", len(state.Scenes))

	go p.run()
}

func (p *PrefetchCoordinator) run() {
	defer func() {
		p.store.SetPrefetching(false)
		p.inFlight.Store(false)
	}()

	scene, err := p.generator.GenerateNext(p.ctx)
	switch {
	case err != nil:
		p.logger.Warn("generation failed", "err", err)
		// Recoverable: the next eligible state change retries.
		p.store.SetPrefetchError("Could not generate the next scene. It will be retried.")
	case scene == nil:
		p.logger.Debug("generator exhausted, story complete")
		p.store.SetStoryComplete(true)
	default:
		p.store.AddScene(*scene)
	}
}

// Retry clears the recorded error and re-arms the trigger, for an explicit
// user retry from the presentation layer.
func (p *PrefetchCoordinator) Retry() {
	p.store.SetPrefetchError("")
	p.evaluate(p.store.State(), p.store.Settings())
}
