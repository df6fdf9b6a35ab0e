package batch

import (
	"strconv"
	"strings"
)

// Path locates a node in a batch tree.
type Path []string

// Key returns a copy of p extended with a map key.
func (p Path) Key(k string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, k)
}

// Index returns a copy of p extended with a list index.
func (p Path) Index(i int) Path {
	return p.Key(strconv.Itoa(i))
}

// String joins the path with dots; the root is ".".
func (p Path) String() string {
	if len(p) == 0 {
		return "."
	}
	return strings.Join(p, ".")
}

// KeySet is a set of map keys.
type KeySet map[string]struct{}

// NewKeySet builds a set from keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether k is in the set. A nil set is empty.
func (s KeySet) Has(k string) bool {
	_, ok := s[k]
	return ok
}
