package digest

import "sort"

// DigestConflictErr indicates the same digest was added twice with
// different casing.
type DigestConflictErr struct{ Digest string }

func (e *DigestConflictErr) Error() string { return "digest conflict: " + e.Digest }

// PathConflictErr indicates a path was added to a Map more than once.
type PathConflictErr struct{ Path string }

func (e *PathConflictErr) Error() string { return "path conflict: " + e.Path }

// Map is an OCFL manifest/state/fixity block: digest -> sorted content or
// logical paths sharing that digest. It is the content-addressed structure
// that lets two logical paths with identical bytes share one physical copy.
type Map map[string][]string

// NewMap returns an empty Map.
func NewMap() Map { return Map{} }

// Add associates path with digest, normalizing digest to lowercase. It
// returns a *PathConflictErr if path is already present under any digest.
func (m Map) Add(digest, path string) error {
	digest = normalize(digest)
	for _, paths := range m {
		for _, p := range paths {
			if p == path {
				return &PathConflictErr{Path: path}
			}
		}
	}
	m[digest] = append(m[digest], path)
	sort.Strings(m[digest])
	return nil
}

// DigestFor returns the digest associated with path, or "" if not present.
func (m Map) DigestFor(path string) string {
	for d, paths := range m {
		for _, p := range paths {
			if p == path {
				return d
			}
		}
	}
	return ""
}

// Paths returns the content/logical paths associated with digest.
func (m Map) Paths(digest string) []string {
	return m[normalize(digest)]
}

// PathMap returns a flattened path -> digest view of the manifest.
func (m Map) PathMap() map[string]string {
	out := make(map[string]string, len(m))
	for d, paths := range m {
		for _, p := range paths {
			out[p] = d
		}
	}
	return out
}

// Clone returns a deep copy of m.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for d, paths := range m {
		cp := make([]string, len(paths))
		copy(cp, paths)
		out[d] = cp
	}
	return out
}

// Len returns the number of distinct paths across all digests.
func (m Map) Len() int {
	n := 0
	for _, paths := range m {
		n += len(paths)
	}
	return n
}

func normalize(digest string) string {
	out := make([]byte, len(digest))
	for i := 0; i < len(digest); i++ {
		c := digest[i]
		if c >= 'A' && c <= 'F' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
