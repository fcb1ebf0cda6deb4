package conflict

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func setupConflict(t *testing.T) (dir, local, copy1, copy2 string) {
	t.Helper()
	dir = t.TempDir()
	local = filepath.Join(dir, "20260101-0900-report.md")
	copy1 = filepath.Join(dir, "20260101-0900-report.sync-conflict-20260102-101500-ABC123.md")
	copy2 = filepath.Join(dir, "20260101-0900-report (alice's conflicted copy 2026-01-03).md")

	writeFile(t, local, "local content\n")
	writeFile(t, copy1, "syncthing content\n")
	writeFile(t, copy2, "alice content\n")

	// Make copy2 the newest.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(copy1, past, past); err != nil {
		t.Fatal(err)
	}
	return dir, local, copy1, copy2
}

func TestListUnresolvedVersions(t *testing.T) {
	_, local, _, _ := setupConflict(t)

	versions, err := FolderProvider{}.ListUnresolvedVersions(local)
	if err != nil {
		t.Fatalf("ListUnresolvedVersions failed: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("versions = %d, want 3 (local + 2 copies)", len(versions))
	}
	if versions[0].ID != LocalVersion {
		t.Errorf("first version = %q, want local", versions[0].ID)
	}

	rc, err := versions[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	content, _ := io.ReadAll(rc)
	rc.Close()
	if string(content) != "local content\n" {
		t.Errorf("local content = %q", content)
	}
}

func TestListUnresolvedVersions_NoConflict(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "clean.md")
	writeFile(t, local, "x\n")
	// A similarly-prefixed sibling that is not a conflict copy.
	writeFile(t, filepath.Join(dir, "clean-2.md"), "y\n")

	versions, err := FolderProvider{}.ListUnresolvedVersions(local)
	if err != nil {
		t.Fatal(err)
	}
	if versions != nil {
		t.Errorf("versions = %v, want nil", versions)
	}
}

func TestResolve_KeepLocal(t *testing.T) {
	_, local, copy1, copy2 := setupConflict(t)

	err := FolderProvider{}.Resolve(local, Resolution{Policy: KeepLocal})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	content, _ := os.ReadFile(local)
	if string(content) != "local content\n" {
		t.Errorf("local content changed: %q", content)
	}
	for _, c := range []string{copy1, copy2} {
		if _, err := os.Stat(c); !os.IsNotExist(err) {
			t.Errorf("copy %s not discarded", filepath.Base(c))
		}
	}

	// Resolution is one-shot: nothing left to list.
	versions, _ := FolderProvider{}.ListUnresolvedVersions(local)
	if versions != nil {
		t.Errorf("conflict still reported after resolve: %v", versions)
	}
}

func TestResolve_KeepRemoteNewest(t *testing.T) {
	_, local, _, _ := setupConflict(t)

	err := FolderProvider{}.Resolve(local, Resolution{Policy: KeepRemote})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	content, _ := os.ReadFile(local)
	if string(content) != "alice content\n" {
		t.Errorf("local = %q, want newest copy's content", content)
	}
}

func TestResolve_KeepRemoteExplicit(t *testing.T) {
	_, local, copy1, _ := setupConflict(t)

	err := FolderProvider{}.Resolve(local, Resolution{
		Policy:  KeepRemote,
		Version: VersionID(filepath.Base(copy1)),
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	content, _ := os.ReadFile(local)
	if string(content) != "syncthing content\n" {
		t.Errorf("local = %q, want explicitly chosen content", content)
	}
}

func TestResolve_Defer(t *testing.T) {
	_, local, copy1, _ := setupConflict(t)

	if err := (FolderProvider{}).Resolve(local, Resolution{Policy: Defer}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Everything left alone; the conflict re-surfaces.
	if _, err := os.Stat(copy1); err != nil {
		t.Error("defer discarded a copy")
	}
	versions, _ := FolderProvider{}.ListUnresolvedVersions(local)
	if len(versions) == 0 {
		t.Error("deferred conflict no longer reported")
	}
}

func TestIsConflictCopy(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.md", false},
		{"report-2.md", false},
		{"report.sync-conflict-20260102-101500-ABC123.md", true},
		{"report (conflicted copy 2026-01-02).md", true},
		{"report (alice's conflicted copy 2026-01-02).md", true},
		{"sync-conflict-notes.md", false},
	}
	for _, tt := range tests {
		if got := IsConflictCopy(tt.name); got != tt.want {
			t.Errorf("IsConflictCopy(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOriginLabel(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a (alice's conflicted copy 2026-01-03).md", "alice"},
		{"a (conflicted copy 2026-01-03).md", "conflicted copy"},
		{"a.sync-conflict-20260102-101500-ABC123.md", "sync-conflict"},
	}
	for _, tt := range tests {
		if got := originLabel(tt.name); got != tt.want {
			t.Errorf("originLabel(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
