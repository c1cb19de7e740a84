package sessionmgr

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/fcrepo/ocfl-core/foi"
	"github.com/fcrepo/ocfl-core/fs/memory"
	"github.com/fcrepo/ocfl-core/osa/ocfl"
	"github.com/fcrepo/ocfl-core/session"
)

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	adapter := ocfl.New(memory.New(), "root")
	idx, err := foi.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return New(adapter, idx, t.TempDir(), opts...)
}

func TestManagerGetReturnsSameSessionForSameTxn(t *testing.T) {
	is := is.New(t)
	m := newTestManager(t)

	s1, err := m.Get("txn1")
	is.NoErr(err)
	s2, err := m.Get("txn1")
	is.NoErr(err)
	is.True(s1 == s2)
}

func TestManagerGetEmptyTxnIsTransient(t *testing.T) {
	is := is.New(t)
	m := newTestManager(t)

	s1, err := m.Get("")
	is.NoErr(err)
	s2, err := m.Get("")
	is.NoErr(err)
	is.True(s1 != s2)
	is.True(s1.ReadOnly())
}

func TestManagerNewTransactionAllocatesID(t *testing.T) {
	is := is.New(t)
	m := newTestManager(t)

	id, sess, err := m.NewTransaction()
	is.NoErr(err)
	is.True(id != "")
	is.True(!sess.ReadOnly())
}

func TestManagerReleaseRemovesStagingDir(t *testing.T) {
	is := is.New(t)
	m := newTestManager(t)

	_, err := m.Get("txn1")
	is.NoErr(err)
	dir := m.sessions["txn1"].stagingDir
	_, statErr := os.Stat(dir)
	is.NoErr(statErr)

	m.Release("txn1")
	_, statErr = os.Stat(dir)
	is.True(os.IsNotExist(statErr))
}

func TestManagerReapOrphansRollsBackStaleSessions(t *testing.T) {
	is := is.New(t)
	m := newTestManager(t, WithOrphanTimeout(time.Nanosecond))

	sess, err := m.Get("txn1")
	is.NoErr(err)
	is.Equal(sess.State(), session.Open)

	time.Sleep(2 * time.Millisecond)
	m.ReapOrphans(context.Background())

	_, ok := m.sessions["txn1"]
	is.True(!ok)
}
