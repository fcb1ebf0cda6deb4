package watch

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// PollNotifier emits changes by rescanning the folder tree on an interval
// and diffing file modification times. Slower to notice changes than
// FSNotifier but works on filesystems that drop inotify events.
type PollNotifier struct {
	root      string
	extension string
	interval  time.Duration
	events    chan Change
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	seen map[string]time.Time
}

// NewPollNotifier starts polling root every interval for files with the
// given extension. The first scan establishes a baseline and emits
// nothing.
func NewPollNotifier(root, extension string, interval time.Duration) *PollNotifier {
	n := &PollNotifier{
		root:      root,
		extension: extension,
		interval:  interval,
		events:    make(chan Change, 100),
		done:      make(chan struct{}),
		seen:      make(map[string]time.Time),
	}
	n.scan(false)

	n.wg.Add(1)
	go n.loop()
	return n
}

// Events returns the change stream. Closed by Close.
func (n *PollNotifier) Events() <-chan Change { return n.events }

// Close stops polling and closes the event channel. Idempotent.
func (n *PollNotifier) Close() error {
	n.closeOnce.Do(func() {
		close(n.done)
		n.wg.Wait()
		close(n.events)
	})
	return nil
}

func (n *PollNotifier) loop() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.done:
			return
		case <-ticker.C:
			n.scan(true)
		}
	}
}

// scan walks the tree, diffs against the previous snapshot, and (when
// emit is set) reports creations, modifications, and deletions.
func (n *PollNotifier) scan(emit bool) {
	current := make(map[string]time.Time, len(n.seen))

	filepath.WalkDir(n.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are retried next scan
		}
		name := d.Name()
		if d.IsDir() {
			if path != n.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, n.extension) || strings.HasPrefix(name, ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		current[path] = info.ModTime()
		return nil
	})

	if emit {
		for path, mtime := range current {
			prev, existed := n.seen[path]
			switch {
			case !existed:
				n.send(Change{Path: path, Op: OpCreate})
			case !mtime.Equal(prev):
				n.send(Change{Path: path, Op: OpModify})
			}
		}
		for path := range n.seen {
			if _, still := current[path]; !still {
				n.send(Change{Path: path, Op: OpDelete})
			}
		}
	}

	n.seen = current
}

func (n *PollNotifier) send(c Change) {
	select {
	case n.events <- c:
	case <-n.done:
	}
}
