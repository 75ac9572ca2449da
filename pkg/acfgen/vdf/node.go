// Package vdf reads and writes the quoted, brace-nested key-value dialect used by
// SteamCMD output and Steam's .acf/.vdf files.
//
// Every leaf is a string; there is no typing. A document is an ordered mapping
// whose values are either strings or nested mappings.
//
// Basic usage:
//
//	root, err := vdf.Parse(text)
//	if err != nil {
//	    return err
//	}
//	name, _ := root.LookupString("601150", "common", "name")
//	fmt.Print(vdf.Stringify(root, vdf.DefaultOptions()))
package vdf

// Kind distinguishes leaf values from nested mappings.
type Kind int

const (
	// KindString is a leaf holding a string value.
	KindString Kind = iota
	// KindMap is an ordered mapping of keys to nodes.
	KindMap
)

// Entry is a single key/node pair inside a mapping.
type Entry struct {
	Key  string
	Node *Node
}

// Node is either a string leaf or an ordered mapping.
// The zero value is an empty string leaf.
type Node struct {
	kind    Kind
	value   string
	entries []Entry
}

// String returns a new leaf node holding v.
func String(v string) *Node {
	return &Node{kind: KindString, value: v}
}

// NewMap returns a new, empty mapping node.
func NewMap() *Node {
	return &Node{kind: KindMap}
}

// Kind reports whether n is a leaf or a mapping.
func (n *Node) Kind() Kind {
	return n.kind
}

// IsMap reports whether n is a mapping.
func (n *Node) IsMap() bool {
	return n != nil && n.kind == KindMap
}

// Value returns the leaf value. It is empty for mappings.
func (n *Node) Value() string {
	if n == nil {
		return ""
	}
	return n.value
}

// Len returns the number of entries in a mapping, 0 for leaves.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.entries)
}

// Entries returns the mapping entries in insertion order.
// The returned slice is a copy; the nodes are shared.
func (n *Node) Entries() []Entry {
	if n == nil {
		return nil
	}
	out := make([]Entry, len(n.entries))
	copy(out, n.entries)
	return out
}

// Keys returns the mapping keys in insertion order.
func (n *Node) Keys() []string {
	if n == nil {
		return nil
	}
	keys := make([]string, 0, len(n.entries))
	for _, e := range n.entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Set assigns child to key. An existing entry for key is replaced in place, so
// the key keeps its original position; otherwise the entry is appended.
// Set converts a leaf into a mapping. It returns n for chaining.
func (n *Node) Set(key string, child *Node) *Node {
	n.kind = KindMap
	n.value = ""
	for i := len(n.entries) - 1; i >= 0; i-- {
		if n.entries[i].Key == key {
			n.entries[i].Node = child
			return n
		}
	}
	n.entries = append(n.entries, Entry{Key: key, Node: child})
	return n
}

// SetString assigns a leaf value to key. It returns n for chaining.
func (n *Node) SetString(key, value string) *Node {
	return n.Set(key, String(value))
}

// Add appends an entry without replacing existing entries for the same key.
// It is used for repeating constructs when duplicates must be kept.
func (n *Node) Add(key string, child *Node) *Node {
	n.kind = KindMap
	n.value = ""
	n.entries = append(n.entries, Entry{Key: key, Node: child})
	return n
}

// Get returns the last entry for key.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.kind != KindMap {
		return nil, false
	}
	for i := len(n.entries) - 1; i >= 0; i-- {
		if n.entries[i].Key == key {
			return n.entries[i].Node, true
		}
	}
	return nil, false
}

// GetString returns the leaf value stored under key.
// It reports false when the key is missing or holds a mapping.
func (n *Node) GetString(key string) (string, bool) {
	child, ok := n.Get(key)
	if !ok || child.kind != KindString {
		return "", false
	}
	return child.value, true
}

// Lookup follows path through nested mappings.
func (n *Node) Lookup(path ...string) (*Node, bool) {
	cur := n
	for _, key := range path {
		next, ok := cur.Get(key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// LookupString follows path and returns the leaf value at its end.
func (n *Node) LookupString(path ...string) (string, bool) {
	found, ok := n.Lookup(path...)
	if !ok || found.kind != KindString {
		return "", false
	}
	return found.value, true
}

// Equal reports whether n and other have the same shape, keys, order and values.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.kind != other.kind {
		return false
	}
	if n.kind == KindString {
		return n.value == other.value
	}
	if len(n.entries) != len(other.entries) {
		return false
	}
	for i := range n.entries {
		if n.entries[i].Key != other.entries[i].Key {
			return false
		}
		if !n.entries[i].Node.Equal(other.entries[i].Node) {
			return false
		}
	}
	return true
}

