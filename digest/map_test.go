package digest

import (
	"testing"

	"github.com/matryer/is"
)

func TestMapAddAndLookup(t *testing.T) {
	is := is.New(t)
	m := NewMap()
	is.NoErr(m.Add("ABCD", "v1/content/a.txt"))
	is.NoErr(m.Add("abcd", "v1/content/b.txt"))

	is.Equal(m.DigestFor("v1/content/a.txt"), "abcd")
	paths := m.Paths("ABCD")
	is.Equal(len(paths), 2)
	is.Equal(paths[0], "v1/content/a.txt")
	is.Equal(paths[1], "v1/content/b.txt")
}

func TestMapAddPathConflict(t *testing.T) {
	is := is.New(t)
	m := NewMap()
	is.NoErr(m.Add("abcd", "v1/content/a.txt"))
	err := m.Add("ffff", "v1/content/a.txt")
	is.True(err != nil)
	_, ok := err.(*PathConflictErr)
	is.True(ok)
}

func TestMapPathMapAndLen(t *testing.T) {
	is := is.New(t)
	m := NewMap()
	is.NoErr(m.Add("abcd", "a.txt"))
	is.NoErr(m.Add("abcd", "b.txt"))
	is.NoErr(m.Add("ffff", "c.txt"))

	is.Equal(m.Len(), 3)
	pm := m.PathMap()
	is.Equal(pm["a.txt"], "abcd")
	is.Equal(pm["c.txt"], "ffff")
}

func TestMapClone(t *testing.T) {
	is := is.New(t)
	m := NewMap()
	is.NoErr(m.Add("abcd", "a.txt"))
	clone := m.Clone()
	is.NoErr(clone.Add("abcd", "b.txt"))
	is.Equal(len(m.Paths("abcd")), 1)
	is.Equal(len(clone.Paths("abcd")), 2)
}
