package vdf

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// MarshalJSON renders leaves as JSON strings and mappings as JSON objects with
// keys in insertion order.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil || n.kind == KindString {
		return json.Marshal(n.Value())
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range n.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := e.Node.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML implements yaml.Marshaler, keeping key order and quoting every
// leaf so numeric-looking values stay strings.
func (n *Node) MarshalYAML() (interface{}, error) {
	return n.yamlNode(), nil
}

func (n *Node) yamlNode() *yaml.Node {
	if n == nil || n.kind == KindString {
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: n.Value(),
			Style: yaml.DoubleQuotedStyle,
		}
	}

	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range n.entries {
		out.Content = append(out.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key},
			e.Node.yamlNode(),
		)
	}
	return out
}
