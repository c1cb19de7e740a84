// Package namaste reads and writes OCFL NAMASTE declaration files, the
// "0=TYPE_VERSION" marker files that identify a directory as an OCFL
// storage root or OCFL object.
package namaste

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"regexp"
	"strings"

	ocflfs "github.com/fcrepo/ocfl-core/fs"
)

const (
	TypeObject = "ocfl_object"
	TypeRoot   = "ocfl"

	Spec1_0 = "1.0"
	Spec1_1 = "1.1"
)

var (
	ErrNotExist  = fmt.Errorf("missing NAMASTE declaration: %w", iofs.ErrNotExist)
	ErrContents  = errors.New("invalid NAMASTE declaration contents")
	ErrMultiple  = errors.New("multiple NAMASTE declarations found")
	declarationR = regexp.MustCompile(`^0=([a-z_]+)_([0-9]+\.[0-9]+)$`)
)

// Declaration is a parsed "0=TYPE_VERSION" NAMASTE file name.
type Declaration struct {
	Type    string
	Version string
}

// Name returns the declaration's file name.
func (d Declaration) Name() string {
	return "0=" + d.Type + "_" + d.Version
}

// Body returns the declaration file's expected contents.
func (d Declaration) Body() string {
	return d.Type + "_" + d.Version + "\n"
}

// Parse parses a NAMASTE file name such as "0=ocfl_object_1.1".
func Parse(name string) (Declaration, error) {
	m := declarationR.FindStringSubmatch(name)
	if len(m) != 3 {
		return Declaration{}, ErrNotExist
	}
	return Declaration{Type: m[1], Version: m[2]}, nil
}

// Find returns the single NAMASTE declaration among entries, erroring if
// there is not exactly one.
func Find(entries []iofs.DirEntry) (Declaration, error) {
	var found []Declaration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if d, err := Parse(e.Name()); err == nil {
			found = append(found, d)
		}
	}
	switch len(found) {
	case 0:
		return Declaration{}, ErrNotExist
	case 1:
		return found[0], nil
	default:
		return Declaration{}, ErrMultiple
	}
}

// Validate confirms the declaration at dir/decl.Name() has the expected
// contents.
func Validate(ctx context.Context, fsys ocflfs.FS, dir string, decl Declaration) error {
	name := dir + "/" + decl.Name()
	f, err := fsys.OpenFile(ctx, name)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return fmt.Errorf("opening %q: %w", name, ErrNotExist)
		}
		return fmt.Errorf("opening %q: %w", name, err)
	}
	defer f.Close()
	buf := make([]byte, len(decl.Body())+1)
	n, _ := f.Read(buf)
	if string(buf[:n]) != decl.Body() {
		return fmt.Errorf("contents of %q: %w", name, ErrContents)
	}
	return nil
}

// Write writes decl's declaration file into dir.
func Write(ctx context.Context, fsys ocflfs.WriteFS, dir string, decl Declaration) error {
	name := dir + "/" + decl.Name()
	_, err := fsys.Write(ctx, name, strings.NewReader(decl.Body()))
	if err != nil {
		return fmt.Errorf("writing declaration: %w", err)
	}
	return nil
}
