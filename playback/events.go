package playback

// ChangeKind identifies which part of the store state a notification covers,
// so subscribers can skip changes they do not depend on.
type ChangeKind int

const (
	// ChangeEntered is sent once when a session is created.
	ChangeEntered ChangeKind = iota
	// ChangeExited is sent once when the session is torn down.
	ChangeExited
	// ChangePlayback covers play/pause flips.
	ChangePlayback
	// ChangeIndex covers current-index moves (next, prev, seek).
	ChangeIndex
	// ChangeScenes covers scene appends and chapter replacement.
	ChangeScenes
	// ChangeImage covers image URL/status updates on a scene.
	ChangeImage
	// ChangePrefetch covers prefetch flag and error updates.
	ChangePrefetch
	// ChangeChapter covers story-complete, loading, and transition flags.
	ChangeChapter
	// ChangeSettings covers settings updates.
	ChangeSettings
	// ChangeFlags covers presentation-only flags (controls, settings panel,
	// end screen).
	ChangeFlags
)

// String returns the string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeEntered:
		return "entered"
	case ChangeExited:
		return "exited"
	case ChangePlayback:
		return "playback"
	case ChangeIndex:
		return "index"
	case ChangeScenes:
		return "scenes"
	case ChangeImage:
		return "image"
	case ChangePrefetch:
		return "prefetch"
	case ChangeChapter:
		return "chapter"
	case ChangeSettings:
		return "settings"
	case ChangeFlags:
		return "flags"
	default:
		return "unknown"
	}
}

// Change is a store notification: the kind of mutation plus a snapshot of
// the state after it. Snapshots are copies; subscribers may hold them.
type Change struct {
	Kind     ChangeKind
	State    Session
	Settings Settings
}

// Subscriber receives store change notifications. Subscribers run inside the
// store's dispatch loop: they must not block, and any store actions they
// trigger are queued and applied after the current notification completes.
type Subscriber func(Change)
