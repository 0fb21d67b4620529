// Package cursor implements the ASCII cursor encoding iterators use to
// freeze and thaw mid-traversal state (spec.md §6 "Cursor (iterator
// freeze) format"). It holds only the dispatch registry; each iterator
// kind that supports thaw registers its own decoder from an init() in its
// own package, so cursor never imports the concrete iterator packages and
// there is no import cycle.
package cursor

import (
	"fmt"
	"strings"

	"github.com/googlearchive/graphd-sub006/setiter"
)

// ThawFunc reconstructs an iterator from the body of its frozen string
// (everything after the leading "kind[").
type ThawFunc func(body string) (setiter.Iterator, error)

var registry = make(map[string]ThawFunc)

// Register installs the thaw function for a cursor prefix, e.g. "fixed".
// Called from init() in the package that owns that iterator kind.
func Register(prefix string, fn ThawFunc) {
	registry[prefix] = fn
}

// Thaw parses the leading "prefix[" token of s and dispatches to the
// registered decoder for that prefix; the inverse of each kind's Freeze.
func Thaw(s string) (setiter.Iterator, error) {
	i := strings.IndexByte(s, '[')
	if i < 0 {
		return nil, fmt.Errorf("cursor: malformed frozen iterator %q", s)
	}
	prefix := s[:i]
	fn, ok := registry[prefix]
	if !ok {
		return nil, fmt.Errorf("cursor: no thaw registered for kind %q", prefix)
	}
	return fn(s[i+1:])
}

// SplitTopLevel splits s on sep at bracket-depth 0, so composite bodies like
// an AND's "sub1+sub2+sub3" can be split without breaking on a nested
// iterator's own brackets.
func SplitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
