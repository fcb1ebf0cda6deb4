package store

import (
	"reflect"
	"testing"
)

func TestLoadManifest_Missing(t *testing.T) {
	m, err := LoadManifest(t.TempDir())
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if len(m.Views) != 0 {
		t.Errorf("Views = %v, want empty", m.Views)
	}
}

func TestManifest_SaveAndReload(t *testing.T) {
	s := testStore(t)

	m, err := LoadManifest(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	m.Reorder("inbox", []string{"b.md", "a.md"})

	if err := s.SaveManifest(m); err != nil {
		t.Fatalf("SaveManifest failed: %v", err)
	}

	reloaded, err := LoadManifest(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(reloaded.Views["inbox"], []string{"b.md", "a.md"}) {
		t.Errorf("Views[inbox] = %v", reloaded.Views["inbox"])
	}
}

func TestManifest_OrderIsAdditive(t *testing.T) {
	m := &Manifest{Views: map[string][]string{
		"inbox": {"c.md", "a.md", "ghost.md"},
	}}

	// Files the manifest doesn't mention follow the pinned ones; pinned
	// names that no longer exist are skipped.
	got := m.Order("inbox", []string{"a.md", "b.md", "c.md", "d.md"})
	want := []string{"c.md", "a.md", "b.md", "d.md"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}

	// Unknown view passes input through.
	names := []string{"x.md", "y.md"}
	if got := m.Order("nope", names); !reflect.DeepEqual(got, names) {
		t.Errorf("Order(unknown view) = %v", got)
	}
}
