// Package conflict models multi-writer conflicts as version sets reported
// by a sync provider, and exposes the resolution policies for them.
//
// The provider capability is deliberately narrow — list the unresolved
// versions of a path, resolve them under a policy — so the resolution logic
// stays portable across sync backends. The bundled FolderProvider reads
// the conflict-copy files that folder sync tools leave next to the
// original; other backends can surface their own version history instead.
package conflict

import (
	"errors"
	"io"
	"time"
)

// VersionID identifies one version within a conflicted path's version set.
type VersionID string

// LocalVersion is the well-known ID of the local working copy.
const LocalVersion VersionID = "local"

// Version is one concurrent version of a conflicted path.
type Version struct {
	ID         VersionID
	ModifiedAt time.Time
	Origin     string // best-effort label of the writer (host, device, "local")

	// Open returns the version's content. The reader is only valid until
	// the version set is resolved.
	Open func() (io.ReadCloser, error)
}

// Policy selects how a version set is resolved.
type Policy int

const (
	// Defer leaves the conflict unresolved; it re-surfaces every sync pass.
	Defer Policy = iota
	// KeepLocal retains the working copy and discards the alternates.
	KeepLocal
	// KeepRemote replaces the working copy with a chosen alternate (an
	// explicit version ID, or the most recently modified one) and discards
	// the rest.
	KeepRemote
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Defer:
		return "defer"
	case KeepLocal:
		return "keep-local"
	case KeepRemote:
		return "keep-remote"
	default:
		return "unknown"
	}
}

// Resolution pairs a policy with an optional explicit version pick.
// Version is only consulted for KeepRemote; empty means most recent.
type Resolution struct {
	Policy  Policy
	Version VersionID
}

// ErrVersionNotFound is returned when a Resolution names a version the
// provider no longer reports.
var ErrVersionNotFound = errors.New("conflict version not found")

// Provider is the sync-backend capability the resolver and the sync engine
// operate against.
//
// ListUnresolvedVersions returns nil for a path with no conflict. A
// returned set always includes the local working copy. Resolve is one-shot:
// once alternates are discarded there is no way back.
type Provider interface {
	ListUnresolvedVersions(path string) ([]Version, error)
	Resolve(path string, res Resolution) error
}

// NopProvider is a Provider for backends without version history; it never
// reports conflicts.
type NopProvider struct{}

func (NopProvider) ListUnresolvedVersions(string) ([]Version, error) { return nil, nil }
func (NopProvider) Resolve(string, Resolution) error                 { return nil }

// Newest returns the most recently modified non-local version, or the
// zero Version if the set holds nothing but the working copy.
func Newest(versions []Version) Version {
	var best Version
	for _, v := range versions {
		if v.ID == LocalVersion {
			continue
		}
		if best.ID == "" || v.ModifiedAt.After(best.ModifiedAt) {
			best = v
		}
	}
	return best
}
