// Package s3 implements fs.WriteFS over an S3 bucket, for storage roots that
// need durable off-box storage rather than local disk.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	iofs "io/fs"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	ocflfs "github.com/fcrepo/ocfl-core/fs"
)

// FS is an fs.WriteFS rooted at a prefix within an S3 bucket.
type FS struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

var (
	_ ocflfs.FS      = (*FS)(nil)
	_ ocflfs.WriteFS = (*FS)(nil)
	_ ocflfs.CopyFS  = (*FS)(nil)
)

// New returns an FS backed by bucket/prefix, using sess for AWS credentials
// and region configuration.
func New(sess *session.Session, bucket, prefix string) *FS {
	return &FS{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
	}
}

// Root identifies this bucket+prefix for same-backend copy detection.
func (f *FS) Root() string { return "s3://" + f.bucket + "/" + f.prefix }

func (f *FS) key(name string) string {
	if f.prefix == "" {
		return name
	}
	return f.prefix + "/" + name
}

func (f *FS) OpenFile(ctx context.Context, name string) (iofs.File, error) {
	out, err := f.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &iofs.PathError{Op: "open", Path: name, Err: iofs.ErrNotExist}
		}
		return nil, err
	}
	size := int64(0)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	modTime := time.Now()
	if out.LastModified != nil {
		modTime = *out.LastModified
	}
	return &object{ReadCloser: out.Body, name: name, size: size, modTime: modTime}, nil
}

func (f *FS) ReadDir(ctx context.Context, name string) ([]iofs.DirEntry, error) {
	prefix := f.key(name)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var entries []iofs.DirEntry
	err := f.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(f.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, p := range page.CommonPrefixes {
			base := strings.TrimSuffix(strings.TrimPrefix(*p.Prefix, prefix), "/")
			entries = append(entries, dirEntry{name: base, isDir: true})
		}
		for _, o := range page.Contents {
			base := strings.TrimPrefix(*o.Key, prefix)
			if base == "" {
				continue
			}
			size := int64(0)
			if o.Size != nil {
				size = *o.Size
			}
			entries = append(entries, dirEntry{name: base, size: size})
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &iofs.PathError{Op: "readdir", Path: name, Err: iofs.ErrNotExist}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (f *FS) Write(ctx context.Context, name string, r io.Reader) (int64, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	_, err = f.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(name)),
		Body:   bytes.NewReader(buf),
	})
	if err != nil {
		return 0, err
	}
	return int64(len(buf)), nil
}

func (f *FS) Remove(ctx context.Context, name string) error {
	_, err := f.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(name)),
	})
	return err
}

func (f *FS) RemoveAll(ctx context.Context, name string) error {
	prefix := f.key(name)
	return f.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(f.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, o := range page.Contents {
			f.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(f.bucket),
				Key:    o.Key,
			})
		}
		return true
	})
}

func (f *FS) Copy(ctx context.Context, dst, src string) (int64, error) {
	source := f.bucket + "/" + f.key(src)
	_, err := f.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(f.bucket),
		Key:        aws.String(f.key(dst)),
		CopySource: aws.String(source),
	})
	if err != nil {
		return 0, err
	}
	head, err := f.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(dst)),
	})
	if err != nil || head.ContentLength == nil {
		return 0, nil
	}
	return *head.ContentLength, nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}

type object struct {
	io.ReadCloser
	name    string
	size    int64
	modTime time.Time
}

func (o *object) Stat() (iofs.FileInfo, error) {
	return fileInfo{name: o.name, size: o.size, modTime: o.modTime}, nil
}

type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (i fileInfo) Name() string        { return i.name }
func (i fileInfo) Size() int64         { return i.size }
func (i fileInfo) Mode() iofs.FileMode { return 0644 }
func (i fileInfo) ModTime() time.Time  { return i.modTime }
func (i fileInfo) IsDir() bool         { return false }
func (i fileInfo) Sys() any            { return nil }

type dirEntry struct {
	name  string
	isDir bool
	size  int64
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
	return fileInfo{name: d.name, size: d.size}, nil
}
