// Package memory implements fs.WriteFS over an in-memory bucket, used by
// tests that should not touch disk.
package memory

import (
	"context"
	"io"
	iofs "io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	ocflfs "github.com/fcrepo/ocfl-core/fs"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
)

// FS is an fs.WriteFS backed by an in-process gocloud.dev blob bucket.
type FS struct {
	bucket *blob.Bucket
	id     string
	mu     sync.Mutex
	seq    int
}

var (
	_ ocflfs.FS      = (*FS)(nil)
	_ ocflfs.WriteFS = (*FS)(nil)
	_ ocflfs.CopyFS  = (*FS)(nil)
)

// New returns an empty in-memory FS.
func New() *FS {
	return &FS{bucket: memblob.OpenBucket(nil), id: newID()}
}

var idCounter struct {
	mu sync.Mutex
	n  int
}

func newID() string {
	idCounter.mu.Lock()
	defer idCounter.mu.Unlock()
	idCounter.n++
	return "memfs-" + itoa(idCounter.n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

// Root identifies this bucket instance for same-backend copy detection.
func (f *FS) Root() string { return f.id }

func (f *FS) OpenFile(ctx context.Context, name string) (iofs.File, error) {
	exists, err := f.bucket.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &iofs.PathError{Op: "open", Path: name, Err: iofs.ErrNotExist}
	}
	r, err := f.bucket.NewReader(ctx, name, nil)
	if err != nil {
		return nil, err
	}
	attrs, err := f.bucket.Attributes(ctx, name)
	if err != nil {
		r.Close()
		return nil, err
	}
	return &blobFile{ReadCloser: r, name: name, size: attrs.Size, modTime: attrs.ModTime}, nil
}

func (f *FS) ReadDir(ctx context.Context, name string) ([]iofs.DirEntry, error) {
	prefix := name
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if prefix == "./" {
		prefix = ""
	}
	iter := f.bucket.List(&blob.ListOptions{Prefix: prefix, Delimiter: "/"})
	var entries []iofs.DirEntry
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		base := strings.TrimPrefix(strings.TrimSuffix(obj.Key, "/"), prefix)
		entries = append(entries, dirEntry{name: base, isDir: obj.IsDir, size: obj.Size, modTime: obj.ModTime})
	}
	if len(entries) == 0 {
		return nil, &iofs.PathError{Op: "readdir", Path: name, Err: iofs.ErrNotExist}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (f *FS) Write(ctx context.Context, name string, r io.Reader) (int64, error) {
	w, err := f.bucket.NewWriter(ctx, name, nil)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(w, r)
	if err != nil {
		w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return n, nil
}

// Copy duplicates src to dst within the same in-memory bucket.
func (f *FS) Copy(ctx context.Context, dst, src string) (int64, error) {
	r, err := f.bucket.NewReader(ctx, src, nil)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return f.Write(ctx, dst, r)
}

func (f *FS) Remove(ctx context.Context, name string) error {
	err := f.bucket.Delete(ctx, name)
	if err != nil && strings.Contains(err.Error(), "not found") {
		return nil
	}
	return err
}

func (f *FS) RemoveAll(ctx context.Context, name string) error {
	prefix := name
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	iter := f.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := f.bucket.Delete(ctx, obj.Key); err != nil {
			return err
		}
	}
	return nil
}

type blobFile struct {
	io.ReadCloser
	name    string
	size    int64
	modTime time.Time
}

func (b *blobFile) Stat() (iofs.FileInfo, error) {
	return fileInfo{name: b.name, size: b.size, modTime: b.modTime}, nil
}

func (b *blobFile) Read(p []byte) (int, error) { return b.ReadCloser.Read(p) }

type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (i fileInfo) Name() string       { return i.name }
func (i fileInfo) Size() int64        { return i.size }
func (i fileInfo) Mode() iofs.FileMode { return 0644 }
func (i fileInfo) ModTime() time.Time { return i.modTime }
func (i fileInfo) IsDir() bool        { return false }
func (i fileInfo) Sys() any           { return nil }

type dirEntry struct {
	name    string
	isDir   bool
	size    int64
	modTime time.Time
}

func (d dirEntry) Name() string { return d.name }
func (d dirEntry) IsDir() bool  { return d.isDir }
func (d dirEntry) Type() iofs.FileMode {
	if d.isDir {
		return iofs.ModeDir
	}
	return 0
}
func (d dirEntry) Info() (iofs.FileInfo, error) {
	return fileInfo{name: d.name, size: d.size, modTime: d.modTime}, nil
}
