package watch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FSNotifier watches a folder tree with fsnotify. Subdirectories are
// watched recursively; new subdirectories are picked up as they appear.
// Only files matching the configured extension are reported, and dotfiles
// are ignored.
type FSNotifier struct {
	root      string
	extension string
	watcher   *fsnotify.Watcher
	events    chan Change
	done      chan struct{}
	wg        sync.WaitGroup
	log       *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewFSNotifier starts watching root and every non-hidden subdirectory
// beneath it for files with the given extension (e.g. ".md").
func NewFSNotifier(root, extension string, logger *slog.Logger) (*FSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	n := &FSNotifier{
		root:      root,
		extension: extension,
		watcher:   watcher,
		events:    make(chan Change, 100),
		done:      make(chan struct{}),
		log:       logger,
	}

	if err := n.addTree(root); err != nil {
		watcher.Close()
		return nil, err
	}

	n.wg.Add(1)
	go n.loop()
	return n, nil
}

// Events returns the change stream. Closed by Close.
func (n *FSNotifier) Events() <-chan Change { return n.events }

// Close stops watching and closes the event channel. Idempotent.
func (n *FSNotifier) Close() error {
	n.closeOnce.Do(func() {
		close(n.done)
		n.closeErr = n.watcher.Close()
		n.wg.Wait()
		close(n.events)
	})
	return n.closeErr
}

func (n *FSNotifier) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := n.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (n *FSNotifier) loop() {
	defer n.wg.Done()

	for {
		select {
		case <-n.done:
			return

		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			n.handle(event)

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			n.log.Warn("watcher error", "error", err)
		}
	}
}

func (n *FSNotifier) handle(event fsnotify.Event) {
	// New subdirectories join the watch set.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(filepath.Base(event.Name), ".") {
				if err := n.addTree(event.Name); err != nil {
					n.log.Warn("watching new directory", "path", event.Name, "error", err)
				}
			}
			return
		}
	}

	change, ok := n.convert(event)
	if !ok {
		return
	}
	select {
	case n.events <- change:
	case <-n.done:
	}
}

// convert maps an fsnotify event onto a Change, dropping events for
// paths outside the watched extension and for hidden files.
func (n *FSNotifier) convert(event fsnotify.Event) (Change, bool) {
	name := filepath.Base(event.Name)
	if !strings.HasSuffix(name, n.extension) || strings.HasPrefix(name, ".") {
		return Change{}, false
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		// The new name arrives as its own create event.
		op = OpDelete
	default:
		return Change{}, false
	}

	return Change{Path: event.Name, Op: op}, true
}
