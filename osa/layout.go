package osa

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

const lowerhex = "0123456789abcdef"

// Layout maps an OCFL object id to the storage root path that holds it.
type Layout interface {
	Resolve(id string) (string, error)
}

// HashTupleLayout implements the OCFL hashed-n-tuple-with-id-encapsulation
// layout: the object's storage path is built from leading segments of the
// hex digest of its id, with the full (percent-encoded) id as the final
// encapsulating directory.
type HashTupleLayout struct {
	TupleSize int // bytes of hex digest per segment
	TupleNum  int // number of segments
}

// DefaultLayout returns the layout used for newly initialized storage
// roots: 3 tuples of 3 hex characters each, taken from a SHA-256 digest of
// the object id.
func DefaultLayout() Layout {
	return &HashTupleLayout{TupleSize: 3, TupleNum: 3}
}

func (l *HashTupleLayout) Resolve(id string) (string, error) {
	if id == "" {
		return "", errors.New("object id must not be empty")
	}
	if l.TupleSize <= 0 || l.TupleNum <= 0 {
		return "", fmt.Errorf("invalid layout: tupleSize=%d tupleNum=%d", l.TupleSize, l.TupleNum)
	}
	sum := sha256.Sum256([]byte(id))
	hexSum := hex.EncodeToString(sum[:])
	needed := l.TupleSize * l.TupleNum
	if needed > len(hexSum) {
		return "", fmt.Errorf("tupleSize*tupleNum (%d) exceeds digest length (%d)", needed, len(hexSum))
	}
	segs := make([]string, 0, l.TupleNum+1)
	for i := 0; i < l.TupleNum; i++ {
		segs = append(segs, hexSum[i*l.TupleSize:(i+1)*l.TupleSize])
	}
	enc := percentEncode(id)
	if len(enc) > 100 {
		enc = enc[:100] + "-" + hexSum
	}
	segs = append(segs, enc)
	out := segs[0]
	for _, s := range segs[1:] {
		out += "/" + s
	}
	return out, nil
}

func percentEncode(in string) string {
	shouldEscape := func(c byte) bool {
		if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || c == '-' || c == '_' {
			return false
		}
		return true
	}
	n := 0
	for i := 0; i < len(in); i++ {
		if shouldEscape(in[i]) {
			n++
		}
	}
	if n == 0 {
		return in
	}
	out := make([]byte, len(in)+2*n)
	j := 0
	for i := 0; i < len(in); i++ {
		c := in[i]
		if shouldEscape(c) {
			out[j] = '%'
			out[j+1] = lowerhex[c>>4]
			out[j+2] = lowerhex[c&15]
			j += 3
			continue
		}
		out[j] = c
		j++
	}
	return string(out)
}
