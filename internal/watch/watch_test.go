package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// collectUntil drains events until one satisfies match or the timeout
// elapses.
func collectUntil(t *testing.T, events <-chan Change, timeout time.Duration, match func(Change) bool) (Change, bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case c, ok := <-events:
			if !ok {
				return Change{}, false
			}
			if match(c) {
				return c, true
			}
		case <-deadline:
			return Change{}, false
		}
	}
}

func TestFSNotifier_CreateModifyDelete(t *testing.T) {
	dir := t.TempDir()
	n, err := NewFSNotifier(dir, ".md", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer n.Close()

	path := filepath.Join(dir, "note.md")
	if err := os.WriteFile(path, []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := collectUntil(t, n.Events(), 2*time.Second, func(c Change) bool {
		return c.Path == path && c.Op == OpCreate
	}); !ok {
		t.Fatal("create event not observed")
	}

	if err := os.WriteFile(path, []byte("b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := collectUntil(t, n.Events(), 2*time.Second, func(c Change) bool {
		return c.Path == path && c.Op == OpModify
	}); !ok {
		t.Fatal("modify event not observed")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, ok := collectUntil(t, n.Events(), 2*time.Second, func(c Change) bool {
		return c.Path == path && c.Op == OpDelete
	}); !ok {
		t.Fatal("delete event not observed")
	}
}

func TestFSNotifier_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	n, err := NewFSNotifier(dir, ".md", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer n.Close()

	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if c, ok := collectUntil(t, n.Events(), 300*time.Millisecond, func(Change) bool { return true }); ok {
		t.Errorf("unexpected event for %s (%s)", c.Path, c.Op)
	}
}

func TestFSNotifier_WatchesNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	n, err := NewFSNotifier(dir, ".md", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer n.Close()

	sub := filepath.Join(dir, "projects")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a beat to add the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "task.md")
	if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := collectUntil(t, n.Events(), 2*time.Second, func(c Change) bool {
		return c.Path == path && c.Op == OpCreate
	}); !ok {
		t.Fatal("event from new subdirectory not observed")
	}
}

func TestFSNotifier_CloseIsIdempotent(t *testing.T) {
	n, err := NewFSNotifier(t.TempDir(), ".md", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Close(); err != nil {
		t.Fatal(err)
	}
	if err := n.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-n.Events(); ok {
		t.Error("events channel still open after Close")
	}
}

func TestPollNotifier_DetectsChanges(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.md")
	if err := os.WriteFile(existing, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	n := NewPollNotifier(dir, ".md", 20*time.Millisecond)
	defer n.Close()

	// The baseline scan must not report the pre-existing file.
	created := filepath.Join(dir, "new.md")
	if err := os.WriteFile(created, []byte("y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, ok := collectUntil(t, n.Events(), 2*time.Second, func(c Change) bool { return c.Op == OpCreate })
	if !ok {
		t.Fatal("create not observed")
	}
	if c.Path != created {
		t.Errorf("created path = %s, want %s (baseline leaked)", c.Path, created)
	}

	// Push the mtime forward past the poll's resolution.
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(existing, future, future); err != nil {
		t.Fatal(err)
	}
	if _, ok := collectUntil(t, n.Events(), 2*time.Second, func(c Change) bool {
		return c.Path == existing && c.Op == OpModify
	}); !ok {
		t.Fatal("modify not observed")
	}

	if err := os.Remove(created); err != nil {
		t.Fatal(err)
	}
	if _, ok := collectUntil(t, n.Events(), 2*time.Second, func(c Change) bool {
		return c.Path == created && c.Op == OpDelete
	}); !ok {
		t.Fatal("delete not observed")
	}
}

func TestDebouncer_Coalesces(t *testing.T) {
	fired := make(chan struct{}, 10)
	d := NewDebouncer(50*time.Millisecond, func() { fired <- struct{}{} })
	defer d.CancelAndWait()

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("action never fired")
	}
	select {
	case <-fired:
		t.Error("action fired more than once for a burst of triggers")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := NewDebouncer(30*time.Millisecond, func() { fired <- struct{}{} })

	d.Trigger()
	d.Cancel()

	select {
	case <-fired:
		t.Error("cancelled action fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpCreate, "create"},
		{OpModify, "modify"},
		{OpDelete, "delete"},
		{Op(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}
