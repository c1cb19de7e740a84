package s3

import (
	"testing"

	"github.com/matryer/is"
)

func TestFSKeyPrefixing(t *testing.T) {
	is := is.New(t)
	f := &FS{bucket: "my-bucket", prefix: "roots/ocfl"}
	is.Equal(f.key("obj1/inventory.json"), "roots/ocfl/obj1/inventory.json")
	is.Equal(f.Root(), "s3://my-bucket/roots/ocfl")
}

func TestFSKeyNoPrefix(t *testing.T) {
	is := is.New(t)
	f := &FS{bucket: "my-bucket"}
	is.Equal(f.key("obj1/inventory.json"), "obj1/inventory.json")
}

