package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// ManifestName is the sibling file holding manual ordering for views.
const ManifestName = "manifest.json"

// manifestVersion is the current manifest format version.
const manifestVersion = 1

// Manifest stores manual task ordering per view. It is updated only on an
// explicit reorder and is additive for files it does not mention: unknown
// files sort after the pinned ones, in their natural order.
type Manifest struct {
	Version int                 `json:"version"`
	Views   map[string][]string `json:"views"`
}

// LoadManifest reads the ordering manifest from the vault root. A missing
// file yields an empty manifest, not an error.
func LoadManifest(root string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, ManifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{Version: manifestVersion, Views: map[string][]string{}}, nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Views == nil {
		m.Views = map[string][]string{}
	}
	return &m, nil
}

// SaveManifest writes the manifest atomically next to the task files.
func (s *Store) SaveManifest(m *Manifest) error {
	m.Version = manifestVersion

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(s.root, ManifestName)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Reorder replaces the ordered filename list for one view.
func (m *Manifest) Reorder(view string, names []string) {
	m.Views[view] = append([]string(nil), names...)
}

// Order sorts the given filenames for a view: names the manifest pins come
// first in manifest order, everything else follows in the order given.
func (m *Manifest) Order(view string, names []string) []string {
	pinned := m.Views[view]
	if len(pinned) == 0 {
		return names
	}

	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	out := make([]string, 0, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range pinned {
		if present[n] && !taken[n] {
			out = append(out, n)
			taken[n] = true
		}
	}
	for _, n := range names {
		if !taken[n] {
			out = append(out, n)
		}
	}
	return out
}
