package vdf

import (
	"strings"
)

// Options controls Stringify output layout.
type Options struct {
	// Indent is repeated once per nesting level. Empty means a tab.
	Indent string

	// Separator is written between a key and its leaf value. Empty means two
	// tabs, the layout the Steam client writes.
	Separator string
}

// DefaultOptions returns the layout used for Steam manifest files.
func DefaultOptions() Options {
	return Options{Indent: "\t", Separator: "\t\t"}
}

// Stringify renders n in the dialect. A mapping renders as its entries at the
// top level; a leaf renders as a single quoted value.
func Stringify(n *Node, opts Options) string {
	if opts.Indent == "" {
		opts.Indent = "\t"
	}
	if opts.Separator == "" {
		opts.Separator = "\t\t"
	}

	var b strings.Builder
	if n == nil {
		return ""
	}
	if n.kind == KindString {
		b.WriteString(quote(n.value))
		b.WriteByte('\n')
		return b.String()
	}
	writeEntries(&b, n, 0, opts)
	return b.String()
}

func writeEntries(b *strings.Builder, n *Node, depth int, opts Options) {
	prefix := strings.Repeat(opts.Indent, depth)
	for _, e := range n.entries {
		b.WriteString(prefix)
		b.WriteString(quote(e.Key))

		if e.Node == nil || e.Node.kind == KindString {
			b.WriteString(opts.Separator)
			b.WriteString(quote(e.Node.Value()))
			b.WriteByte('\n')
			continue
		}

		b.WriteByte('\n')
		b.WriteString(prefix)
		b.WriteString("{\n")
		writeEntries(b, e.Node, depth+1, opts)
		b.WriteString(prefix)
		b.WriteString("}\n")
	}
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}
