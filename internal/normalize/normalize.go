// Package normalize produces the canonical serialization of resource
// documents: semantically identical documents always serialize to
// byte-identical output, with minimal incidental diff against the output of
// standard packaging tools.
package normalize

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mlisa-ops/drgen/internal/manifest"
)

// Indent is the canonical indentation width. Sequence items are indented
// under their key, matching the reference tool's list formatting.
const Indent = 2

// topLevelOrder is the fixed key precedence for document roots. Keys not
// listed keep their document order after these.
var topLevelOrder = []string{
	"apiVersion",
	"kind",
	"metadata",
	"spec",
	"data",
	"stringData",
	"rules",
	"subjects",
	"roleRef",
	"status",
}

// metadataOrder is the fixed key precedence inside metadata mappings.
var metadataOrder = []string{
	"name",
	"namespace",
	"labels",
	"annotations",
}

// kindOrder overrides the top-level precedence per resource kind. The zero
// entry ("") is the default.
var kindOrder = map[string][]string{
	"": topLevelOrder,
	"ConfigMap": {
		"apiVersion",
		"kind",
		"metadata",
		"data",
		"binaryData",
	},
	"Service": {
		"apiVersion",
		"kind",
		"metadata",
		"spec",
	},
}

// Normalize canonicalizes a document in place: key order per the precedence
// lists, plain scalar styles (the encoder quotes only what would otherwise
// be misinterpreted), literal blocks for multiline strings, block-style
// collections. Idempotent: normalizing a normalized document is a no-op.
func Normalize(doc *yaml.Node) {
	root := manifest.Root(doc)
	if root == nil {
		return
	}

	kind := manifest.Kind(root)
	order, ok := kindOrder[kind]
	if !ok {
		order = kindOrder[""]
	}

	if root.Kind == yaml.MappingNode {
		reorderKeys(root, order)
		if md := manifest.Get(root, "metadata"); md != nil && md.Kind == yaml.MappingNode {
			reorderKeys(md, metadataOrder)
		}
	}

	restyle(root)
}

// Marshal serializes a document in canonical form. Normalize is applied
// first, so Marshal(doc) is deterministic for semantically equal documents.
func Marshal(doc *yaml.Node) ([]byte, error) {
	Normalize(doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(Indent)
	if err := enc.Encode(manifest.Root(doc)); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalAll serializes a document stream with "---" separators and no
// trailing separator.
func MarshalAll(docs []*yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	for i, doc := range docs {
		data, err := Marshal(doc)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// reorderKeys stably moves the listed keys to the front in the given order;
// unlisted keys keep their relative document order.
func reorderKeys(m *yaml.Node, order []string) {
	rank := make(map[string]int, len(order))
	for i, k := range order {
		rank[k] = i
	}

	type pair struct {
		key, value *yaml.Node
	}
	pairs := make([]pair, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		pairs = append(pairs, pair{m.Content[i], m.Content[i+1]})
	}

	// Stable partition: ranked keys in precedence order, then the rest.
	ordered := make([]pair, 0, len(pairs))
	for _, want := range order {
		for _, p := range pairs {
			if p.key.Value == want {
				ordered = append(ordered, p)
			}
		}
	}
	for _, p := range pairs {
		if _, ranked := rank[p.key.Value]; !ranked {
			ordered = append(ordered, p)
		}
	}

	m.Content = m.Content[:0]
	for _, p := range ordered {
		m.Content = append(m.Content, p.key, p.value)
	}
}

// restyle clears incidental node styles so the encoder picks the canonical
// representation: plain scalars quoted only when ambiguous, literal blocks
// for multiline strings, block-style mappings and sequences.
func restyle(n *yaml.Node) {
	if n == nil {
		return
	}

	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!str" && strings.Contains(n.Value, "\n") {
			n.Style = yaml.LiteralStyle
		} else {
			n.Style = 0
		}
	default:
		n.Style = 0
	}

	for _, c := range n.Content {
		restyle(c)
	}
}
