package osa

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestHashTupleLayoutResolve(t *testing.T) {
	is := is.New(t)
	l := DefaultLayout()
	p, err := l.Resolve("info:fedora/foo")
	is.NoErr(err)

	sum := sha256.Sum256([]byte("info:fedora/foo"))
	hexSum := hex.EncodeToString(sum[:])
	wantPrefix := hexSum[0:3] + "/" + hexSum[3:6] + "/" + hexSum[6:9] + "/"
	is.True(strings.HasPrefix(p, wantPrefix))
	is.True(strings.HasSuffix(p, "info%3afedora%2ffoo"))
}

func TestHashTupleLayoutEmptyID(t *testing.T) {
	is := is.New(t)
	l := DefaultLayout()
	_, err := l.Resolve("")
	is.True(err != nil)
}

func TestHashTupleLayoutDeterministic(t *testing.T) {
	is := is.New(t)
	l := DefaultLayout()
	a, err := l.Resolve("info:fedora/bar")
	is.NoErr(err)
	b, err := l.Resolve("info:fedora/bar")
	is.NoErr(err)
	is.Equal(a, b)
}
