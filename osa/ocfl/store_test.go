package ocfl

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/fcrepo/ocfl-core/fs/memory"
	"github.com/fcrepo/ocfl-core/inventory"
	"github.com/fcrepo/ocfl-core/osa"
)

func newTestStore() *Store {
	return New(memory.New(), "root")
}

func TestStoreWritePrepareCommitMutableHead(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := newTestStore()

	id := "info:fedora/obj1"
	_, _, err := s.Write(ctx, id, "fcr-container.nt", strings.NewReader("<a> <b> <c> ."))
	is.NoErr(err)
	is.True(s.HasStagedChanges(ctx, id))

	is.NoErr(s.Prepare(ctx, id))
	is.NoErr(s.Commit(ctx, id, osa.MutableHead))
	// A mutable head is an on-disk change not yet promoted to a version.
	is.True(s.HasStagedChanges(ctx, id))

	ok, err := s.Contains(ctx, id)
	is.NoErr(err)
	is.True(ok)

	f, err := s.Read(ctx, id, "fcr-container.nt")
	is.NoErr(err)
	defer f.Close()
	b, err := io.ReadAll(f)
	is.NoErr(err)
	is.Equal(string(b), "<a> <b> <c> .")
}

func TestStoreNewVersionCommitAndRevert(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := newTestStore()

	id := "info:fedora/obj2"
	_, _, err := s.Write(ctx, id, "fcr-content", strings.NewReader("v1 bytes"))
	is.NoErr(err)
	is.NoErr(s.Prepare(ctx, id))
	is.NoErr(s.Commit(ctx, id, osa.NewVersion))

	versions, err := s.ListVersions(ctx, id)
	is.NoErr(err)
	is.Equal(len(versions), 1)
	is.Equal(versions[0].Num.String(), "v1")

	_, _, err = s.Write(ctx, id, "fcr-content", strings.NewReader("v2 bytes"))
	is.NoErr(err)
	is.NoErr(s.Prepare(ctx, id))
	is.NoErr(s.Commit(ctx, id, osa.NewVersion))

	versions, err = s.ListVersions(ctx, id)
	is.NoErr(err)
	is.Equal(len(versions), 2)

	f, err := s.Read(ctx, id, "fcr-content")
	is.NoErr(err)
	b, err := io.ReadAll(f)
	f.Close()
	is.NoErr(err)
	is.Equal(string(b), "v2 bytes")

	v2, err := inventory.ParseVNum("v2")
	is.NoErr(err)
	is.NoErr(s.RevertVersion(ctx, id, v2))

	versions, err = s.ListVersions(ctx, id)
	is.NoErr(err)
	is.Equal(len(versions), 1)
}

func TestStoreDeleteRemovesFromManifestState(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := newTestStore()

	id := "info:fedora/obj3"
	_, _, err := s.Write(ctx, id, "a.txt", strings.NewReader("aaa"))
	is.NoErr(err)
	is.NoErr(s.Prepare(ctx, id))
	is.NoErr(s.Commit(ctx, id, osa.MutableHead))

	is.NoErr(s.Delete(ctx, id, "a.txt"))
	is.NoErr(s.Prepare(ctx, id))
	is.NoErr(s.Commit(ctx, id, osa.MutableHead))

	_, err = s.Read(ctx, id, "a.txt")
	is.True(err != nil)
}

func TestStoreHasStagedChangesClearsAfterNewVersionCommit(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := newTestStore()

	id := "info:fedora/obj5"
	_, _, err := s.Write(ctx, id, "fcr-content", strings.NewReader("bytes"))
	is.NoErr(err)
	is.NoErr(s.Prepare(ctx, id))
	is.NoErr(s.Commit(ctx, id, osa.MutableHead))
	is.True(s.HasStagedChanges(ctx, id))

	// Promoting the mutable head to a real version with no further writes
	// must clear HasStagedChanges.
	is.NoErr(s.Prepare(ctx, id))
	is.NoErr(s.Commit(ctx, id, osa.NewVersion))
	is.True(!s.HasStagedChanges(ctx, id))
}

func TestStorePrepareCommitPromotesExistingMutableHeadWithNoNewWrites(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := newTestStore()

	id := "info:fedora/obj6"
	_, _, err := s.Write(ctx, id, "fcr-content", strings.NewReader("mutable bytes"))
	is.NoErr(err)
	is.NoErr(s.Prepare(ctx, id))
	is.NoErr(s.Commit(ctx, id, osa.MutableHead))

	// A fresh stage for id, with no staged Write/Delete calls, must still
	// be able to prepare and commit: it promotes the mutable head left by
	// the prior stage rather than erroring for lack of staged content.
	is.NoErr(s.Prepare(ctx, id))
	is.NoErr(s.Commit(ctx, id, osa.NewVersion))

	versions, err := s.ListVersions(ctx, id)
	is.NoErr(err)
	is.Equal(len(versions), 1)
	is.True(!s.HasStagedChanges(ctx, id))

	f, err := s.Read(ctx, id, "fcr-content")
	is.NoErr(err)
	b, err := io.ReadAll(f)
	f.Close()
	is.NoErr(err)
	is.Equal(string(b), "mutable bytes")
}

func TestStorePurge(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := newTestStore()

	id := "info:fedora/obj4"
	_, _, err := s.Write(ctx, id, "a.txt", strings.NewReader("aaa"))
	is.NoErr(err)
	is.NoErr(s.Prepare(ctx, id))
	is.NoErr(s.Commit(ctx, id, osa.MutableHead))

	is.NoErr(s.Purge(ctx, id))
	ok, err := s.Contains(ctx, id)
	is.NoErr(err)
	is.True(!ok)
}
