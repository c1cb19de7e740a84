package inventory

import (
	"testing"

	"github.com/matryer/is"
)

func TestParseVNum(t *testing.T) {
	is := is.New(t)
	v, err := ParseVNum("v3")
	is.NoErr(err)
	is.Equal(v.Num(), 3)
	is.Equal(v.String(), "v3")

	v, err = ParseVNum("v003")
	is.NoErr(err)
	is.Equal(v.Num(), 3)
	is.Equal(v.String(), "v003")
}

func TestParseVNumInvalid(t *testing.T) {
	is := is.New(t)
	_, err := ParseVNum("3")
	is.True(err != nil)
	_, err = ParseVNum("v0")
	is.True(err != nil)
	_, err = ParseVNum("vabc")
	is.True(err != nil)
}

func TestVNumNext(t *testing.T) {
	is := is.New(t)
	next, err := V1.Next()
	is.NoErr(err)
	is.Equal(next.String(), "v2")

	padded, err := ParseVNum("v0009")
	is.NoErr(err)
	n2, err := padded.Next()
	is.NoErr(err)
	is.Equal(n2.String(), "v0010")
}

func TestVNumTextRoundtrip(t *testing.T) {
	is := is.New(t)
	var v VNum
	is.NoErr(v.UnmarshalText([]byte("v007")))
	b, err := v.MarshalText()
	is.NoErr(err)
	is.Equal(string(b), "v007")
}
