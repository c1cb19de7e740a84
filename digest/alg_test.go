package digest

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestDigestSHA512(t *testing.T) {
	is := is.New(t)
	got, err := Digest(SHA512, strings.NewReader("hello"))
	is.NoErr(err)
	is.Equal(got, "9b71d224bd62f3785d96d46ad3ea3d73319bfbc2890caadae2dff72519673ca"+
		"72323c3d99ba5c11d7c7acc6e14b8c5da0c4663475c2e5c3adef46f73bcdec043")
}

func TestDigestSHA256(t *testing.T) {
	is := is.New(t)
	got, err := Digest(SHA256, strings.NewReader("hello"))
	is.NoErr(err)
	is.Equal(got, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824")
}

func TestByIDUnknown(t *testing.T) {
	is := is.New(t)
	is.Equal(ByID("md5"), nil)
	is.True(ByID("sha512") != nil)
	is.True(ByID("blake2b-512") != nil)
}
