package file

import "github.com/redbco/redb-resx/resx/pathmatch"

// NodeMatch reports whether a node identifier satisfies some criterion,
// modelling the "node_match" half of the §4.K.2 (node_match, pattern) access
// entry: either a literal node identifier or a callback over nodes.
type NodeMatch func(node string) bool

// NodeIs builds a NodeMatch that accepts exactly one literal node identifier.
func NodeIs(id string) NodeMatch {
	return func(node string) bool { return node == id }
}

// NodeIn builds a NodeMatch that accepts any of the given node identifiers.
func NodeIn(ids ...string) NodeMatch {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(node string) bool {
		_, ok := set[node]
		return ok
	}
}

// Entry is one access-matrix entry: a path predicate, optionally restricted
// to a subset of nodes. A nil node restriction matches every node.
type Entry struct {
	node  NodeMatch
	match func(path string) bool
}

// GlobEntry builds an Entry from an extended glob pattern (§4.K.2 "literal
// string or extended glob" — a literal path is just a glob with no special
// characters, so there is no separate literal constructor).
func GlobEntry(pattern string) (Entry, error) {
	m, err := pathmatch.Glob(pattern)
	if err != nil {
		return Entry{}, err
	}
	return Entry{match: m.Match}, nil
}

// RegexEntry builds an Entry from a regular expression pattern, compiled and
// anchored to the whole path.
func RegexEntry(pattern string) (Entry, error) {
	m, err := pathmatch.Regexp(pattern)
	if err != nil {
		return Entry{}, err
	}
	return Entry{match: m.Match}, nil
}

// FuncEntry builds an Entry from a raw path predicate callback.
func FuncEntry(fn func(path string) bool) Entry {
	return Entry{match: fn}
}

// ForNode restricts e to nodes matched by node, implementing the
// "(node_match, pattern)" entry shape.
func (e Entry) ForNode(node NodeMatch) Entry {
	e.node = node
	return e
}

// Matrix is an access-matrix configuration: a reference passes iff any entry
// matches, per §4.K.2.
type Matrix []Entry

// Allows reports whether path is permitted for node under m.
func (m Matrix) Allows(node, path string) bool {
	for _, e := range m {
		if e.node != nil && !e.node(node) {
			continue
		}
		if e.match != nil && e.match(path) {
			return true
		}
	}
	return false
}
