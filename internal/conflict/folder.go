package conflict

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/natefinch/atomic"
)

// Conflict-copy suffixes written by folder sync tools, matched against the
// part of a sibling's stem that follows the original stem.
//
//	report.sync-conflict-20260102-150405-ABCDEF.md   (Syncthing)
//	report (conflicted copy 2026-01-02).md           (Dropbox, Nextcloud)
//	report (alice's conflicted copy 2026-01-02).md   (Dropbox, named)
var conflictSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`^\.sync-conflict-\d{8}-\d{6}-\w+$`),
	regexp.MustCompile(`^ \(.*conflicted copy[^)]*\)$`),
}

// FolderProvider detects conflicts from the sibling copy files a folder
// sync tool leaves beside the original, and resolves them by rewriting or
// removing those copies.
type FolderProvider struct{}

// ListUnresolvedVersions returns the version set for path: the local
// working copy plus one version per conflict-copy sibling. Nil when no
// copies exist.
func (FolderProvider) ListUnresolvedVersions(path string) ([]Version, error) {
	copies, err := conflictCopies(path)
	if err != nil {
		return nil, err
	}
	if len(copies) == 0 {
		return nil, nil
	}

	versions := make([]Version, 0, len(copies)+1)

	if info, err := os.Stat(path); err == nil {
		versions = append(versions, Version{
			ID:         LocalVersion,
			ModifiedAt: info.ModTime(),
			Origin:     "local",
			Open:       openFile(path),
		})
	}

	for _, copyPath := range copies {
		info, err := os.Stat(copyPath)
		if err != nil {
			continue // copy vanished mid-scan
		}
		versions = append(versions, Version{
			ID:         VersionID(filepath.Base(copyPath)),
			ModifiedAt: info.ModTime(),
			Origin:     originLabel(filepath.Base(copyPath)),
			Open:       openFile(copyPath),
		})
	}

	return versions, nil
}

// Resolve applies a resolution to the version set. KeepLocal and KeepRemote
// discard the conflict copies, which makes resolution irreversible; Defer
// leaves everything in place.
func (p FolderProvider) Resolve(path string, res Resolution) error {
	copies, err := conflictCopies(path)
	if err != nil {
		return err
	}
	if len(copies) == 0 {
		return nil
	}

	switch res.Policy {
	case Defer:
		return nil

	case KeepLocal:
		return removeAll(copies)

	case KeepRemote:
		chosen, err := p.pickRemote(path, copies, res.Version)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(chosen)
		if err != nil {
			return fmt.Errorf("reading chosen version: %w", err)
		}
		if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
			return fmt.Errorf("replacing local content: %w", err)
		}
		return removeAll(copies)

	default:
		return fmt.Errorf("unknown policy %v", res.Policy)
	}
}

// pickRemote selects the copy named by id, or the newest copy when id is
// empty.
func (FolderProvider) pickRemote(path string, copies []string, id VersionID) (string, error) {
	if id == "" || id == LocalVersion {
		best := ""
		var bestMod int64
		for _, c := range copies {
			info, err := os.Stat(c)
			if err != nil {
				continue
			}
			if best == "" || info.ModTime().UnixNano() > bestMod {
				best = c
				bestMod = info.ModTime().UnixNano()
			}
		}
		if best == "" {
			return "", ErrVersionNotFound
		}
		return best, nil
	}

	for _, c := range copies {
		if filepath.Base(c) == string(id) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrVersionNotFound, id)
}

// conflictCopies lists sibling files that are conflict copies of path.
func conflictCopies(path string) ([]string, error) {
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning for conflict copies: %w", err)
	}

	var copies []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == name {
			continue
		}
		other := entry.Name()
		if filepath.Ext(other) != ext {
			continue
		}
		otherStem := strings.TrimSuffix(other, ext)
		if !strings.HasPrefix(otherStem, stem) {
			continue
		}
		if isConflictSuffix(otherStem[len(stem):]) {
			copies = append(copies, filepath.Join(dir, other))
		}
	}
	return copies, nil
}

// IsConflictCopy reports whether name looks like a conflict-copy sibling
// rather than an original file. Used by callers that enumerate folders so
// copies are not ingested as documents in their own right.
func IsConflictCopy(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	// The suffix patterns are anchored, so try every tail of the stem.
	for i := range stem {
		if isConflictSuffix(stem[i:]) {
			return true
		}
	}
	return false
}

func isConflictSuffix(suffix string) bool {
	for _, re := range conflictSuffixes {
		if re.MatchString(suffix) {
			return true
		}
	}
	return false
}

// originLabel extracts a best-effort writer label from a conflict-copy
// name, e.g. the device name Dropbox embeds.
func originLabel(name string) string {
	if i := strings.Index(name, "conflicted copy"); i >= 0 {
		if j := strings.LastIndex(name[:i], "("); j >= 0 {
			label := strings.TrimSpace(strings.TrimSuffix(name[j+1:i], "'s "))
			if label != "" {
				return label
			}
		}
		return "conflicted copy"
	}
	if strings.Contains(name, ".sync-conflict-") {
		return "sync-conflict"
	}
	return "unknown"
}

func openFile(path string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return os.Open(path) }
}

func removeAll(paths []string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("discarding conflict copy: %w", err)
		}
	}
	return nil
}
