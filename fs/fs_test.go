package fs_test

import (
	"context"
	iofs "io/fs"
	"strings"
	"testing"

	"github.com/matryer/is"

	ocflfs "github.com/fcrepo/ocfl-core/fs"
	"github.com/fcrepo/ocfl-core/fs/memory"
)

func TestReadAll(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	fsys := memory.New()
	_, err := fsys.Write(ctx, "f.txt", strings.NewReader("contents"))
	is.NoErr(err)

	b, err := ocflfs.ReadAll(ctx, fsys, "f.txt")
	is.NoErr(err)
	is.Equal(string(b), "contents")
}

func TestCopySameBackendUsesNativeCopy(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	fsys := memory.New()
	_, err := fsys.Write(ctx, "src.txt", strings.NewReader("payload"))
	is.NoErr(err)

	n, err := ocflfs.Copy(ctx, fsys, "dst.txt", fsys, "src.txt")
	is.NoErr(err)
	is.Equal(n, int64(7))

	b, err := ocflfs.ReadAll(ctx, fsys, "dst.txt")
	is.NoErr(err)
	is.Equal(string(b), "payload")
}

func TestEachFile(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	fsys := memory.New()
	_, err := fsys.Write(ctx, "a/one.txt", strings.NewReader("1"))
	is.NoErr(err)
	_, err = fsys.Write(ctx, "a/b/two.txt", strings.NewReader("2"))
	is.NoErr(err)

	var names []string
	err = ocflfs.EachFile(ctx, fsys, "a", func(name string, _ iofs.DirEntry) error {
		names = append(names, name)
		return nil
	})
	is.NoErr(err)
	is.Equal(len(names), 2)
}
