// Package digest provides content digest algorithms and digest-to-path
// manifests used to build and validate OCFL inventories.
package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"
)

const (
	SHA512  = alg("sha512")
	SHA256  = alg("sha256")
	BLAKE2B = alg("blake2b-512")
)

var builtin = map[alg]func() hash.Hash{
	SHA512:  sha512.New,
	SHA256:  sha256.New,
	BLAKE2B: mustBlake2b512,
}

// Alg identifies a digest algorithm usable for OCFL content-addressing.
type Alg interface {
	ID() string
	New() Digester
}

// Digester accumulates bytes and produces a hex-encoded digest.
type Digester interface {
	io.Writer
	String() string
}

type alg string

func (a alg) ID() string { return string(a) }

func (a alg) New() Digester {
	ctor := builtin[a]
	if ctor == nil {
		return nil
	}
	return hashDigester{Hash: ctor()}
}

// ByID returns the built-in Alg for name, or nil if name is unknown.
func ByID(name string) Alg {
	a := alg(name)
	if _, ok := builtin[a]; !ok {
		return nil
	}
	return a
}

type hashDigester struct {
	hash.Hash
}

func (h hashDigester) String() string { return hex.EncodeToString(h.Sum(nil)) }

func mustBlake2b512() hash.Hash {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic("digest: blake2b-512 unavailable: " + err.Error())
	}
	return h
}

// Digest computes alg's digest of the bytes read from r.
func Digest(alg Alg, r io.Reader) (string, error) {
	d := alg.New()
	if _, err := io.Copy(d, r); err != nil {
		return "", err
	}
	return d.String(), nil
}
