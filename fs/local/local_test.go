package local

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestLocalWriteReadRemove(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	fsys, err := New(t.TempDir())
	is.NoErr(err)

	n, err := fsys.Write(ctx, "a/b/c.txt", strings.NewReader("hello"))
	is.NoErr(err)
	is.Equal(n, int64(5))

	f, err := fsys.OpenFile(ctx, "a/b/c.txt")
	is.NoErr(err)
	b, err := io.ReadAll(f)
	f.Close()
	is.NoErr(err)
	is.Equal(string(b), "hello")

	entries, err := fsys.ReadDir(ctx, "a/b")
	is.NoErr(err)
	is.Equal(len(entries), 1)
	is.Equal(entries[0].Name(), "c.txt")

	is.NoErr(fsys.Remove(ctx, "a/b/c.txt"))
	_, err = fsys.OpenFile(ctx, "a/b/c.txt")
	is.True(err != nil)
}

func TestLocalCopy(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	fsys, err := New(t.TempDir())
	is.NoErr(err)

	_, err = fsys.Write(ctx, "src.txt", strings.NewReader("payload"))
	is.NoErr(err)
	_, err = fsys.Copy(ctx, "dst.txt", "src.txt")
	is.NoErr(err)

	f, err := fsys.OpenFile(ctx, "dst.txt")
	is.NoErr(err)
	b, err := io.ReadAll(f)
	f.Close()
	is.NoErr(err)
	is.Equal(string(b), "payload")
}

func TestLocalRemoveAll(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	fsys, err := New(t.TempDir())
	is.NoErr(err)

	_, err = fsys.Write(ctx, "dir/a.txt", strings.NewReader("x"))
	is.NoErr(err)
	is.NoErr(fsys.RemoveAll(ctx, "dir"))

	_, err = fsys.ReadDir(ctx, "dir")
	is.True(err != nil)
}
