// Package placeholder builds the token map for a transformation run and
// substitutes ${TOKEN} markers in resource documents.
package placeholder

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/mlisa-ops/drgen/internal/catalog"
	"github.com/mlisa-ops/drgen/internal/errors"
	"github.com/mlisa-ops/drgen/internal/ipalloc"
	"github.com/mlisa-ops/drgen/internal/manifest"
)

// MaxDepth bounds recursive re-scanning of replacement values, so a
// placeholder may expand to text containing further placeholders.
const MaxDepth = 3

// tokenPattern matches ${TOKEN} markers. Bare $NAME is left alone: manifests
// legitimately carry shell fragments in config data.
var tokenPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Map maps placeholder tokens to replacement values. Values may be strings
// or nested structures; a leaf consisting of exactly one token takes the
// value's native type.
type Map map[string]interface{}

// File is the per-resource-kind placeholder definition document.
type File struct {
	// Values lists token defaults for this resource kind.
	Values map[string]interface{} `json:"values,omitempty"`

	// Templatize maps resource name to the document paths whose live values
	// are overwritten with tokens during extraction (path → token).
	Templatize map[string][]PathToken `json:"templatize,omitempty"`
}

// PathToken binds a document path (pipe syntax) to a placeholder token.
type PathToken struct {
	Path  string `json:"path"`
	Token string `json:"token"`
}

// LoadFile reads a per-kind placeholder definition file. A missing file is
// not an error: kinds without placeholders are common.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("reading placeholder file: %w", err)
	}
	var f File
	if err := sigsyaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parsing placeholder file: %w", err)
	}
	return f, nil
}

// Build merges file defaults with the resolved site parameters. Catalog-
// derived values win on key collision.
func Build(file File, site catalog.SiteConfig, ranges ipalloc.Pair, s ipalloc.Site) Map {
	m := make(Map, len(file.Values)+16)
	for k, v := range file.Values {
		m[k] = v
	}

	spec := ranges.ForSite(s)

	m["ENVIRONMENT"] = site.Environment
	m["CLUSTER"] = site.Cluster
	m["PROJECT_ID"] = site.ProjectID
	m["REGION"] = site.RegionFor(s)
	m["VPC_NAME"] = site.VPCName
	m["SITE"] = string(s)
	m["SUBNET_IP_CIDR_RANGE"] = spec.SubnetCIDR
	m["PODS_IP_CIDR_RANGE"] = spec.PodsCIDR
	m["SERVICES_IP_CIDR_RANGE"] = spec.ServicesCIDR
	m["VPC_CONNECTOR_IP_CIDR_RANGE"] = spec.ConnectorCIDR
	m["MASTER_IPV4_CIDR_BLOCK"] = spec.MasterCIDR

	return m
}

// Unresolved names one token that survived substitution, with its location.
type Unresolved struct {
	Token string
	Path  string
}

func (u Unresolved) String() string {
	return fmt.Sprintf("${%s} at %s", u.Token, u.Path)
}

// UnresolvedPlaceholderError names every unresolved token and its document
// path. Partial output is never produced.
type UnresolvedPlaceholderError struct {
	Tokens []Unresolved
}

func (e *UnresolvedPlaceholderError) Error() string {
	parts := make([]string, len(e.Tokens))
	for i, t := range e.Tokens {
		parts[i] = t.String()
	}
	return "unresolved placeholders: " + strings.Join(parts, "; ")
}

func (e *UnresolvedPlaceholderError) Unwrap() error {
	return errors.ErrUnresolved
}

// Apply substitutes every ${TOKEN} occurrence in the document's string
// leaves. Replacement values are re-scanned up to MaxDepth times, so tokens
// may expand to text containing further tokens. A leaf that is exactly one
// token whose mapped value is a non-string becomes that structured value;
// string leaves inside the inserted subtree are resolved with the remaining
// depth budget.
//
// Tokens still present after the depth bound fail the run with
// *UnresolvedPlaceholderError; the document must then be discarded.
func Apply(doc *yaml.Node, m Map) error {
	var unresolved []Unresolved

	if err := resolveTree(doc, m, MaxDepth, nil, &unresolved); err != nil {
		return err
	}

	if len(unresolved) > 0 {
		sort.Slice(unresolved, func(i, j int) bool {
			if unresolved[i].Path != unresolved[j].Path {
				return unresolved[i].Path < unresolved[j].Path
			}
			return unresolved[i].Token < unresolved[j].Token
		})
		return &UnresolvedPlaceholderError{Tokens: unresolved}
	}
	return nil
}

// resolveTree resolves every string leaf under n, reporting leaf paths
// relative to base.
func resolveTree(n *yaml.Node, m Map, depth int, base []string, unresolved *[]Unresolved) error {
	return manifest.WalkStrings(n, func(path []string, leaf *yaml.Node) error {
		full := make([]string, 0, len(base)+len(path))
		full = append(append(full, base...), path...)
		return resolveLeaf(leaf, m, depth, full, unresolved)
	})
}

// resolveLeaf expands one string leaf. Each expansion round spends one level
// of the depth budget; a whole-token leaf whose mapped value is a non-string
// becomes that value, and the inserted subtree is re-scanned with the budget
// that remains.
func resolveLeaf(leaf *yaml.Node, m Map, depth int, path []string, unresolved *[]Unresolved) error {
	for d := depth; d > 0; d-- {
		// Whole-token leaf: preserve the mapped value's native type.
		if sub := tokenPattern.FindStringSubmatch(leaf.Value); sub != nil && sub[0] == leaf.Value {
			if v, ok := m[sub[1]]; ok {
				if _, isString := v.(string); !isString {
					if err := encodeInto(leaf, v); err != nil {
						return err
					}
					return resolveTree(leaf, m, d-1, path, unresolved)
				}
			}
		}

		next := expandOnce(leaf.Value, m)
		if next == leaf.Value {
			break
		}
		leaf.Value = next
	}

	for _, sub := range tokenPattern.FindAllStringSubmatch(leaf.Value, -1) {
		*unresolved = append(*unresolved, Unresolved{
			Token: sub[1],
			Path:  manifest.JoinPath(path),
		})
	}
	return nil
}

// expandOnce replaces every mapped token exactly once, leaving unknown
// tokens in place for the error report.
func expandOnce(s string, m Map) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		token := match[2 : len(match)-1]
		v, ok := m[token]
		if !ok {
			return match
		}
		return cast.ToString(v)
	})
}

// encodeInto replaces a leaf node with the encoded form of a structured
// value, preserving the node's position in its parent.
func encodeInto(leaf *yaml.Node, v interface{}) error {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return fmt.Errorf("encoding placeholder value: %w", err)
	}
	*leaf = n
	return nil
}
