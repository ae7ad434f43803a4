// Package manifest provides helpers for working with resource documents as
// ordered YAML node trees. The *yaml.Node representation keeps mapping order
// and scalar styles, which the normalizer depends on for diff-minimal output.
package manifest

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mlisa-ops/drgen/internal/errors"
)

// PathSeparator splits the segments of a document path ("data|FIELD").
const PathSeparator = "|"

// Parse decodes a single YAML document and returns its root node.
func Parse(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return Root(&doc), nil
}

// ParseAll decodes a multi-document YAML stream into root nodes.
func ParseAll(data []byte) ([]*yaml.Node, error) {
	var docs []*yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parsing document stream: %w", err)
		}
		if root := Root(&doc); root != nil {
			docs = append(docs, root)
		}
	}
	return docs, nil
}

// Root unwraps a DocumentNode to its content root.
func Root(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil
		}
		return n.Content[0]
	}
	return n
}

// FromUnstructured converts a decoded object (map of scalars/lists/maps) into
// a node tree. Map keys come out sorted, which keeps documents built from
// unordered Go maps deterministic.
func FromUnstructured(obj map[string]interface{}) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(obj); err != nil {
		return nil, fmt.Errorf("encoding object: %w", err)
	}
	return &n, nil
}

// Copy returns a deep copy of a node tree. Pipeline stages mutate documents
// in place, so each (kind, site) request works on its own copy.
func Copy(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	out := *n
	if len(n.Content) > 0 {
		out.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			out.Content[i] = Copy(c)
		}
	}
	return &out
}

// Get returns the value node for a key of a mapping node, or nil.
func Get(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// Set replaces the value for a key of a mapping node, appending the pair if
// the key is absent.
func Set(n *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			n.Content[i+1] = value
			return
		}
	}
	n.Content = append(n.Content, Scalar(key), value)
}

// Delete removes a key from a mapping node. Returns false if absent.
func Delete(n *yaml.Node, key string) bool {
	if n == nil || n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			n.Content = append(n.Content[:i], n.Content[i+2:]...)
			return true
		}
	}
	return false
}

// Scalar returns a plain string scalar node.
func Scalar(value string) *yaml.Node {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Value: value,
	}
}

// SplitPath splits a pipe-separated document path into segments.
func SplitPath(path string) []string {
	return strings.Split(path, PathSeparator)
}

// JoinPath joins path segments back into the pipe syntax.
func JoinPath(parts []string) string {
	return strings.Join(parts, PathSeparator)
}

// Lookup walks a pipe-separated path through nested mappings and returns the
// addressed node. The second result distinguishes "absent key" (nil, nil)
// from a structural failure: an ancestor exists but is not a mapping.
func Lookup(n *yaml.Node, parts []string) (*yaml.Node, error) {
	current := n
	for i, part := range parts {
		if current == nil {
			return nil, nil
		}
		if current.Kind != yaml.MappingNode {
			return nil, errors.Wrap(errors.ErrValidation,
				fmt.Sprintf("path %q: ancestor %q is not a mapping", JoinPath(parts), JoinPath(parts[:i])))
		}
		current = Get(current, part)
	}
	return current, nil
}

// SetPath sets the value at a pipe-separated path. The parent of the final
// segment must exist and be a mapping; a missing parent is reported as not
// addressable, a missing final key is created.
func SetPath(n *yaml.Node, parts []string, value *yaml.Node) error {
	if len(parts) == 0 {
		return errors.Wrap(errors.ErrValidation, "empty path")
	}
	parent, err := Lookup(n, parts[:len(parts)-1])
	if err != nil {
		return err
	}
	if parent == nil {
		return nil // absent ancestor: tolerated no-op
	}
	if parent.Kind != yaml.MappingNode {
		return errors.Wrap(errors.ErrValidation,
			fmt.Sprintf("path %q: parent is not a mapping", JoinPath(parts)))
	}
	Set(parent, parts[len(parts)-1], value)
	return nil
}

// WalkStrings visits every string-typed scalar leaf of a node tree in
// document order, passing its path. The visitor may mutate the leaf value
// and may retain the path slice.
func WalkStrings(n *yaml.Node, fn func(path []string, leaf *yaml.Node) error) error {
	return walkStrings(n, nil, fn)
}

// childPath returns a fresh slice so visitors can retain paths safely.
func childPath(path []string, segment string) []string {
	child := make([]string, len(path)+1)
	copy(child, path)
	child[len(path)] = segment
	return child
}

func walkStrings(n *yaml.Node, path []string, fn func(path []string, leaf *yaml.Node) error) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			if err := walkStrings(c, path, fn); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if err := walkStrings(n.Content[i+1], childPath(path, n.Content[i].Value), fn); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for i, c := range n.Content {
			if err := walkStrings(c, childPath(path, fmt.Sprintf("[%d]", i)), fn); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		if n.Tag == "!!str" {
			return fn(path, n)
		}
	}
	return nil
}

// WalkMappings visits every mapping node of a tree in document order,
// passing the path of the mapping itself.
func WalkMappings(n *yaml.Node, fn func(path []string, m *yaml.Node) error) error {
	return walkMappings(n, nil, fn)
}

func walkMappings(n *yaml.Node, path []string, fn func(path []string, m *yaml.Node) error) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			if err := walkMappings(c, path, fn); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		if err := fn(path, n); err != nil {
			return err
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			if err := walkMappings(n.Content[i+1], childPath(path, n.Content[i].Value), fn); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for i, c := range n.Content {
			if err := walkMappings(c, childPath(path, fmt.Sprintf("[%d]", i)), fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Kind returns the document's "kind" field, or "".
func Kind(doc *yaml.Node) string {
	if v := Get(Root(doc), "kind"); v != nil {
		return v.Value
	}
	return ""
}

// Name returns the document's metadata.name field, or "".
func Name(doc *yaml.Node) string {
	if v := Get(Get(Root(doc), "metadata"), "name"); v != nil {
		return v.Value
	}
	return ""
}
