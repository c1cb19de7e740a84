// Package osa defines the Object Store Adapter: the boundary between a
// storage session and the on-disk OCFL object store. An adapter stages
// content for one OCFL object at a time and promotes it atomically on
// Commit.
package osa

import (
	"context"
	"io"
	iofs "io/fs"

	"github.com/fcrepo/ocfl-core/digest"
	"github.com/fcrepo/ocfl-core/inventory"
)

// CommitMode selects how Commit promotes staged content into an object's
// version history.
type CommitMode int

const (
	// NewVersion creates a new immutable OCFL version from the staged
	// content, advancing the object's head.
	NewVersion CommitMode = iota
	// MutableHead writes staged content into the OCFL mutable-head
	// extension area without creating a new version. A mutable head is
	// visible to readers immediately and cannot be rolled back.
	MutableHead
)

func (m CommitMode) String() string {
	switch m {
	case NewVersion:
		return "new-version"
	case MutableHead:
		return "mutable-head"
	default:
		return "unknown"
	}
}

// VersionInfo describes one version in an object's history, as surfaced to
// callers inspecting history (mementos).
type VersionInfo struct {
	Num     inventory.VNum
	Created string
	Message string
}

// ObjectStoreAdapter mediates all on-disk access to one OCFL storage root.
// Every method is safe to call from multiple goroutines unless noted.
type ObjectStoreAdapter interface {
	// Contains reports whether an OCFL object with the given id already
	// exists in the store.
	Contains(ctx context.Context, id string) (bool, error)

	// Read opens a content file at logicalPath in the head version (or
	// mutable head, if present) of the object identified by id.
	Read(ctx context.Context, id, logicalPath string) (iofs.File, error)

	// ListVersions returns the object's version history, oldest first.
	ListVersions(ctx context.Context, id string) ([]VersionInfo, error)

	// Write stages content at logicalPath for the object identified by
	// id. Staged content is not visible to Read or ListVersions until
	// Commit. Calling Write again for the same id and logicalPath before
	// Commit replaces the staged content.
	Write(ctx context.Context, id, logicalPath string, r io.Reader) (digestHex string, size int64, err error)

	// Delete stages removal of logicalPath for the object identified by
	// id.
	Delete(ctx context.Context, id, logicalPath string) error

	// HasStagedChanges reports whether id has changes not yet part of an
	// immutable version: either a pending Write or Delete not yet
	// committed or discarded, or an on-disk mutable head committed by a
	// prior session and not yet promoted.
	HasStagedChanges(ctx context.Context, id string) bool

	// Prepare validates staged content for id and makes it
	// crash-durable without yet making it visible: a process restart
	// after Prepare succeeds must be able to either resume toward Commit
	// or Discard cleanly, never silently lose the staged object.
	Prepare(ctx context.Context, id string) error

	// Commit atomically promotes id's prepared content into the store
	// under the given mode. Commit must only be called after a
	// successful Prepare.
	Commit(ctx context.Context, id string, mode CommitMode) error

	// Discard abandons staged (and, if already called, prepared) content
	// for id without modifying the store.
	Discard(ctx context.Context, id string) error

	// Purge permanently removes an entire OCFL object and its full
	// version history. Purge cannot be undone by Discard or rollback.
	Purge(ctx context.Context, id string) error

	// ManifestDigests returns the digest map for id's head version, used
	// by callers performing content-addressed deduplication across
	// subpaths.
	ManifestDigests(ctx context.Context, id string) (digest.Map, error)
}

// VersionReverter is an optional capability an ObjectStoreAdapter may
// implement to support rolling back a NewVersion commit by removing the
// version it created. Adapters that cannot safely do this (for example,
// because a later commit may already have built on top of it) omit this
// interface; session rollback treats its absence as "not revertable" for
// that object, per the fixed NEW_VERSION rollback decision recorded in
// the design notes.
type VersionReverter interface {
	// RevertVersion removes the given version from id's history,
	// provided it is still the object's head.
	RevertVersion(ctx context.Context, id string, v inventory.VNum) error
}

// VersionReader is an optional capability an ObjectStoreAdapter may
// implement to support reading content from a historical version rather
// than only the head, for memento-style retrieval.
type VersionReader interface {
	// ReadVersion opens a content file at logicalPath as it existed in
	// version v of the object identified by id.
	ReadVersion(ctx context.Context, id string, v inventory.VNum, logicalPath string) (iofs.File, error)
}
