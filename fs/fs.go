// Package fs provides the minimal file system abstraction that the rest of
// the module uses to talk to an OCFL storage root, independent of whether
// the bytes live on local disk, in memory, or in an object store such as S3.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
)

var (
	ErrOpUnsupported = errors.New("operation not supported by the file system")
	ErrNotFile       = errors.New("not a file")
)

// FS is the minimal file system abstraction: reading a named file and
// listing a directory's entries.
type FS interface {
	// OpenFile opens the named file for reading. It returns an error if
	// name does not exist or is a directory.
	OpenFile(ctx context.Context, name string) (fs.File, error)
	// ReadDir returns the directory entries at name, sorted by name. If
	// name does not exist, it returns an error wrapping fs.ErrNotExist.
	ReadDir(ctx context.Context, name string) ([]fs.DirEntry, error)
}

// WriteFS is a backend that also supports writing and removing content.
type WriteFS interface {
	FS
	// Write creates or overwrites the file at name with the contents of
	// buffer, returning the number of bytes written.
	Write(ctx context.Context, name string, buffer io.Reader) (int64, error)
	// Remove deletes the file at name. It is a no-op if name does not exist.
	Remove(ctx context.Context, name string) error
	// RemoveAll deletes name and any children, recursively. It is a no-op
	// if name does not exist.
	RemoveAll(ctx context.Context, name string) error
}

// CopyFS is a WriteFS with a backend-native copy operation (e.g., a
// server-side copy on an object store), used to avoid a read/write
// round-trip through the caller's process when src and dst share a backend.
type CopyFS interface {
	WriteFS
	Copy(ctx context.Context, dst, src string) (int64, error)
	// Root identifies the backend instance, so Copy callers can tell
	// whether two FS values address the same underlying store.
	Root() string
}

// Copy copies src in srcFS to dst in dstFS, using dstFS's native Copy when
// srcFS and dstFS are the same backend and support it.
func Copy(ctx context.Context, dstFS FS, dst string, srcFS FS, src string) (int64, error) {
	if cpFS, ok := dstFS.(CopyFS); ok {
		if srcCp, ok := srcFS.(CopyFS); ok && srcCp.Root() == cpFS.Root() {
			n, err := cpFS.Copy(ctx, dst, src)
			if err != nil {
				return 0, fmt.Errorf("during copy: %w", err)
			}
			return n, nil
		}
	}
	srcF, err := srcFS.OpenFile(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("opening for copy: %w", err)
	}
	defer srcF.Close()
	writeFS, ok := dstFS.(WriteFS)
	if !ok {
		return 0, fmt.Errorf("copy destination: %w", ErrOpUnsupported)
	}
	n, err := writeFS.Write(ctx, dst, srcF)
	if err != nil {
		return 0, fmt.Errorf("writing during copy: %w", err)
	}
	return n, nil
}

// EachFile walks root in fsys, invoking walkFn for every regular file found
// (recursing into sub-directories). It is the backend-agnostic counterpart
// of filepath.WalkDir. Missing directories are treated as having no files.
func EachFile(ctx context.Context, fsys FS, root string, walkFn func(name string, entry fs.DirEntry) error) error {
	entries, err := fsys.ReadDir(ctx, root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		next := e.Name()
		if root != "" && root != "." {
			next = root + "/" + e.Name()
		}
		if e.Type().IsRegular() {
			if err := walkFn(next, e); err != nil {
				return err
			}
			continue
		}
		if e.IsDir() {
			if err := EachFile(ctx, fsys, next, walkFn); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadAll reads the entire contents of the named file.
func ReadAll(ctx context.Context, fsys FS, name string) ([]byte, error) {
	f, err := fsys.OpenFile(ctx, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
