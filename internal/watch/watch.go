// Package watch delivers change notifications for a task folder. The
// primary implementation rides fsnotify; PollNotifier is the fallback for
// filesystems where inotify-style events are unreliable (network mounts,
// some sync clients). Consumers debounce the stream themselves, typically
// to pull a sync pass forward.
package watch

// Op is the kind of change observed on a path.
type Op int

const (
	// OpCreate indicates a new file appeared.
	OpCreate Op = iota
	// OpModify indicates an existing file changed.
	OpModify
	// OpDelete indicates a file disappeared.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is one observed file change.
type Change struct {
	// Path is the path of the file that changed.
	Path string
	// Op is the operation that occurred.
	Op Op
}

// Notifier emits file changes for a watched folder.
type Notifier interface {
	// Events returns the change stream. The channel is closed by Close.
	Events() <-chan Change
	// Close stops watching and releases resources.
	Close() error
}
