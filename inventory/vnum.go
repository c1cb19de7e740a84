package inventory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// VNum is an OCFL version directory name, e.g. "v1", "v2".
type VNum struct {
	num     int
	padding int // 0 means unpadded
}

// V1 is the first version of any OCFL object.
var V1 = VNum{num: 1}

var ErrVNumFormat = errors.New("invalid OCFL version number format")

// ParseVNum parses a version directory name such as "v3" or "v003".
func ParseVNum(s string) (VNum, error) {
	if !strings.HasPrefix(s, "v") || len(s) < 2 {
		return VNum{}, fmt.Errorf("%q: %w", s, ErrVNumFormat)
	}
	digits := s[1:]
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return VNum{}, fmt.Errorf("%q: %w", s, ErrVNumFormat)
	}
	padding := 0
	if len(digits) > 1 && digits[0] == '0' {
		padding = len(digits)
	}
	return VNum{num: n, padding: padding}, nil
}

// Num returns the version number.
func (v VNum) Num() int { return v.num }

// Next returns the next sequential version, preserving zero-padding width.
func (v VNum) Next() (VNum, error) {
	next := VNum{num: v.num + 1, padding: v.padding}
	if v.padding > 0 && len(strconv.Itoa(next.num)) > v.padding {
		return VNum{}, fmt.Errorf("version number exceeds zero-padding width %d", v.padding)
	}
	return next, nil
}

func (v VNum) String() string {
	if v.num == 0 {
		return ""
	}
	if v.padding == 0 {
		return "v" + strconv.Itoa(v.num)
	}
	return fmt.Sprintf("v%0*d", v.padding, v.num)
}

// MarshalText implements encoding.TextMarshaler so VNum can be a map key in
// JSON-encoded inventories.
func (v VNum) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *VNum) UnmarshalText(b []byte) error {
	parsed, err := ParseVNum(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
