// Package playback implements the scheduling core for sequential story
// playback: a single state store driving scene advancement from timers,
// narration completion, background prefetch, and chapter continuation.
package playback

import "time"

// AssetStatus tracks the lifecycle of a scene asset (content or image).
type AssetStatus int

const (
	// StatusPending indicates the asset has not been requested yet.
	StatusPending AssetStatus = iota
	// StatusGenerating indicates the asset is being produced.
	StatusGenerating
	// StatusReady indicates the asset is available.
	StatusReady
	// StatusError indicates production of the asset failed.
	StatusError
)

// String returns the string representation of the status.
func (s AssetStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusGenerating:
		return "generating"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Scene is one unit of playback content: narration text, an image, and a
// duration. The Index is stable for the lifetime of a chapter and is the key
// used for image updates, never the slice position.
type Scene struct {
	Index          int
	NarrationText  string
	ImagePrompt    string
	NegativePrompt string
	Duration       time.Duration
	ContentStatus  AssetStatus
	ImageStatus    AssetStatus
	ImageURL       string
}

// ImageReady reports whether the scene's visual asset can be shown.
func (s Scene) ImageReady() bool {
	return s.ImageStatus == StatusReady || s.ImageURL != ""
}

// Ready reports whether the scene is fully ready for playback: content ready
// and image ready.
func (s Scene) Ready() bool {
	return s.ContentStatus == StatusReady && s.ImageReady()
}
