package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestMemoryWriteReadRemove(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	fsys := New()

	n, err := fsys.Write(ctx, "a/b.txt", strings.NewReader("hi"))
	is.NoErr(err)
	is.Equal(n, int64(2))

	f, err := fsys.OpenFile(ctx, "a/b.txt")
	is.NoErr(err)
	b, err := io.ReadAll(f)
	f.Close()
	is.NoErr(err)
	is.Equal(string(b), "hi")

	is.NoErr(fsys.Remove(ctx, "a/b.txt"))
	_, err = fsys.OpenFile(ctx, "a/b.txt")
	is.True(err != nil)
}

func TestMemoryCopy(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	fsys := New()

	_, err := fsys.Write(ctx, "src.txt", strings.NewReader("payload"))
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

func TestMemoryTwoInstancesHaveDistinctRoots(t *testing.T) {
	is := is.New(t)
	a := New()
	b := New()
	is.True(a.Root() != b.Root())
}
