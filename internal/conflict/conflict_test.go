package conflict

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewest(t *testing.T) {
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	versions := []Version{
		{ID: LocalVersion, ModifiedAt: base.Add(time.Hour)},
		{ID: "old", ModifiedAt: base},
		{ID: "new", ModifiedAt: base.Add(30 * time.Minute)},
	}

	newest := Newest(versions)
	if newest.ID != "new" {
		t.Errorf("newest = %q, want %q (local excluded)", newest.ID, "new")
	}

	if got := Newest([]Version{{ID: LocalVersion}}); got.ID != "" {
		t.Errorf("Newest with only local present = %q, want zero", got.ID)
	}
}

func TestResolve_UnknownVersion(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "note.md")
	copyPath := filepath.Join(dir, "note.sync-conflict-20260102-101500-ABC123.md")
	for _, p := range []string{local, copyPath} {
		if err := os.WriteFile(p, []byte("x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	err := FolderProvider{}.Resolve(local, Resolution{Policy: KeepRemote, Version: "nope.md"})
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("err = %v, want ErrVersionNotFound", err)
	}
	if _, err := os.Stat(copyPath); err != nil {
		t.Error("failed resolve discarded the copy")
	}
}

func TestPolicyString(t *testing.T) {
	tests := []struct {
		p    Policy
		want string
	}{
		{Defer, "defer"},
		{KeepLocal, "keep-local"},
		{KeepRemote, "keep-remote"},
		{Policy(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Policy(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}
