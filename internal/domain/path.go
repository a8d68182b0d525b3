package domain

import (
	"slices"
	"strings"
)

// Path is a sequence of keys leading from a tree root to a node
type Path []string

const pathSep = "\x1f"

// Append returns a new path extended with key; the receiver is not modified
func (p Path) Append(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}

// Key returns a comparable encoding of the path
func (p Path) Key() PathKey {
	return PathKey(strings.Join(p, pathSep))
}

// String renders the path for logs
func (p Path) String() string {
	return strings.Join(p, " / ")
}

// Compare orders paths element by element
func (p Path) Compare(o Path) int {
	return slices.Compare(p, o)
}

// HasPrefix reports whether p starts with every element of prefix
func (p Path) HasPrefix(prefix Path) bool {
	return len(p) >= len(prefix) && slices.Equal(p[:len(prefix)], prefix)
}

// PathKey is the map-friendly form of a Path
type PathKey string

// Path decodes the key back into its elements
func (k PathKey) Path() Path {
	if k == "" {
		return Path{}
	}
	return Path(strings.Split(string(k), pathSep))
}

// SourceMap records which source last wrote each path of a merged tree
type SourceMap map[PathKey]string

// Source returns the attribution for path
func (m SourceMap) Source(path Path) (string, bool) {
	s, ok := m[path.Key()]
	return s, ok
}

// Paths returns every attributed path in sorted order
func (m SourceMap) Paths() []Path {
	out := make([]Path, 0, len(m))
	for k := range m {
		out = append(out, k.Path())
	}
	slices.SortFunc(out, Path.Compare)
	return out
}
