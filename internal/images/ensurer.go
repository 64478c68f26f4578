// Package images materializes scene images: it resolves a URL for a scene,
// fetches the bytes, and reports readiness back into the playback store.
package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"github.com/dgnsrekt/storycast/internal/cache"
	"github.com/dgnsrekt/storycast/playback"
)

// maxImageBytes caps a single downloaded image.
const maxImageBytes = 8 << 20

// URLBuilder derives a fetchable image URL from a scene that carries only a
// prompt. The default targets the pollinations.ai prompt-to-image endpoint.
type URLBuilder func(scene playback.Scene) string

// DefaultURLBuilder builds a pollinations.ai URL from the scene prompts.
func DefaultURLBuilder(scene playback.Scene) string {
	q := url.Values{}
	if scene.NegativePrompt != "" {
		q.Set("negative_prompt", scene.NegativePrompt)
	}
	u := url.URL{
		Scheme:   "https",
		Host:     "image.pollinations.ai",
		Path:     "/prompt/" + url.PathEscape(scene.ImagePrompt),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Ensurer implements playback.ImageEnsurer. Fetches are single-flight per
// scene index and bounded by a concurrency semaphore so image prefetch for
// the next scene never starves the current one.
type Ensurer struct {
	store    *playback.Store
	client   *http.Client
	cache    *cache.Memory
	buildURL URLBuilder
	sem      *semaphore.Weighted
	logger   *log.Logger
	ctx      context.Context

	mu       sync.Mutex
	inFlight map[int]bool
}

// Option configures the ensurer.
type Option func(*Ensurer)

// WithURLBuilder overrides how prompt-only scenes resolve to a URL.
func WithURLBuilder(b URLBuilder) Option {
	return func(e *Ensurer) { e.buildURL = b }
}

// WithHTTPClient overrides the fetch client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Ensurer) { e.client = c }
}

// New creates an ensurer reporting into store, caching image bytes in mem.
func New(ctx context.Context, store *playback.Store, mem *cache.Memory, opts ...Option) *Ensurer {
	e := &Ensurer{
		store:    store,
		client:   &http.Client{Timeout: 30 * time.Second},
		cache:    mem,
		buildURL: DefaultURLBuilder,
		sem:      semaphore.NewWeighted(2),
		logger:   log.Default().WithPrefix("images"),
		ctx:      ctx,
		inFlight: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnsureImage starts materializing the scene's image unless it is already
// ready or being fetched. Safe to call repeatedly for the same scene.
func (e *Ensurer) EnsureImage(scene playback.Scene) {
	if scene.ImageReady() {
		return
	}

	e.mu.Lock()
	if e.inFlight[scene.Index] {
		e.mu.Unlock()
		return
	}
	e.inFlight[scene.Index] = true
	e.mu.Unlock()

	go e.fetch(scene)
}

func (e *Ensurer) fetch(scene playback.Scene) {
	defer func() {
		e.mu.Lock()
		delete(e.inFlight, scene.Index)
		e.mu.Unlock()
	}()

	target := scene.ImageURL
	if target == "" {
		if scene.ImagePrompt == "" {
			e.logger.Debug("scene has no image source", "index", scene.Index)
			e.store.SetImageStatus(scene.Index, playback.StatusError)
			return
		}
		target = e.buildURL(scene)
	}

	if e.cache != nil && e.cache.Contains(cacheKey(target)) {
		e.store.UpdateSceneImage(scene.Index, target)
		return
	}

	e.store.SetImageStatus(scene.Index, playback.StatusGenerating)

	if err := e.sem.Acquire(e.ctx, 1); err != nil {
		return
	}
	defer e.sem.Release(1)

	data, err := e.download(target)
	if err != nil {
		e.logger.Warn("image fetch failed", "index", scene.Index, "err", err)
		e.store.SetImageStatus(scene.Index, playback.StatusError)
		return
	}

	if e.cache != nil {
		if err := e.cache.Put(cacheKey(target), data); err != nil {
			e.logger.Debug("image not cached", "err", err)
		}
	}
	e.store.UpdateSceneImage(scene.Index, target)
}

func (e *Ensurer) download(target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(e.ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Image returns the cached bytes for a scene's resolved URL, if present.
func (e *Ensurer) Image(imageURL string) ([]byte, bool) {
	if e.cache == nil || imageURL == "" {
		return nil, false
	}
	return e.cache.Get(cacheKey(imageURL))
}

func cacheKey(target string) string { return "img:" + target }
