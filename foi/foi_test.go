package foi

import (
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexAddCommitGet(t *testing.T) {
	is := is.New(t)
	idx := openTestIndex(t)

	is.NoErr(idx.Add("txn1", Entry{RID: "info:fedora/foo", OCFLObjectID: "obj1", RootResourceID: "info:fedora/foo"}))
	is.True(idx.HasPending("txn1"))

	// Before commit, only the transaction's own overlay sees it.
	_, err := idx.Get("", "info:fedora/foo")
	is.True(err != nil)
	e, err := idx.Get("txn1", "info:fedora/foo")
	is.NoErr(err)
	is.Equal(e.OCFLObjectID, "obj1")

	is.NoErr(idx.Commit("txn1"))
	is.True(!idx.HasPending("txn1"))

	e, err = idx.Get("", "info:fedora/foo")
	is.NoErr(err)
	is.Equal(e.OCFLObjectID, "obj1")
}

func TestIndexRemoveAndRollback(t *testing.T) {
	is := is.New(t)
	idx := openTestIndex(t)

	is.NoErr(idx.Add("txn1", Entry{RID: "r1", OCFLObjectID: "o1"}))
	is.NoErr(idx.Commit("txn1"))

	is.NoErr(idx.Remove("txn2", "r1"))
	_, err := idx.Get("txn2", "r1")
	is.True(err != nil) // staged as removed

	idx.Rollback("txn2")
	is.True(!idx.HasPending("txn2"))

	e, err := idx.Get("", "r1")
	is.NoErr(err)
	is.Equal(e.RID, "r1")
}

func TestIndexRemoveAndCommit(t *testing.T) {
	is := is.New(t)
	idx := openTestIndex(t)

	is.NoErr(idx.Add("txn1", Entry{RID: "r1", OCFLObjectID: "o1"}))
	is.NoErr(idx.Commit("txn1"))

	is.NoErr(idx.Remove("txn2", "r1"))
	is.NoErr(idx.Commit("txn2"))

	_, err := idx.Get("", "r1")
	is.True(err != nil)
}
