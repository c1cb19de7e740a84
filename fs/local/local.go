// Package local implements fs.WriteFS over a directory on the local disk,
// the durable backend used by a production storage root.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"

	ocflfs "github.com/fcrepo/ocfl-core/fs"
)

const (
	dirPerm  = 0755
	filePerm = 0644
)

// FS is a fs.WriteFS rooted at a directory on the local file system.
type FS struct {
	root string
}

var (
	_ ocflfs.FS      = (*FS)(nil)
	_ ocflfs.WriteFS = (*FS)(nil)
	_ ocflfs.CopyFS  = (*FS)(nil)
)

// New returns an FS rooted at dir. dir is created if it does not exist.
func New(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root path: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	return &FS{root: abs}, nil
}

// Root returns the backend's base directory, used to detect same-backend
// copies.
func (f *FS) Root() string { return f.root }

func (f *FS) nativePath(name string) (string, error) {
	if !iofs.ValidPath(name) {
		return "", &iofs.PathError{Op: "resolve", Path: name, Err: errors.New("invalid path")}
	}
	return filepath.Join(f.root, filepath.FromSlash(name)), nil
}

func (f *FS) OpenFile(ctx context.Context, name string) (iofs.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := f.nativePath(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, &iofs.PathError{Op: "open", Path: name, Err: ocflfs.ErrNotFile}
	}
	return file, nil
}

func (f *FS) ReadDir(ctx context.Context, name string) ([]iofs.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := f.nativePath(name)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (f *FS) Write(ctx context.Context, name string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p, err := f.nativePath(name)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(p), dirPerm); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Chmod(tmp.Name(), filePerm); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}

func (f *FS) Remove(ctx context.Context, name string) error {
	p, err := f.nativePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FS) RemoveAll(ctx context.Context, name string) error {
	p, err := f.nativePath(name)
	if err != nil {
		return err
	}
	return os.RemoveAll(p)
}

func (f *FS) Copy(ctx context.Context, dst, src string) (int64, error) {
	srcP, err := f.nativePath(src)
	if err != nil {
		return 0, err
	}
	in, err := os.Open(srcP)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return f.Write(ctx, dst, in)
}
