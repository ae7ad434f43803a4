// Package rules applies ordered search-and-replace rules to resource
// documents. Rule order is semantically significant: later rules see the
// output of earlier ones, so the rule set is a slice, never a set.
package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/mlisa-ops/drgen/internal/manifest"
)

// Rule is one ordered rewrite. Exactly one of Path, Key, or Match selects
// the targets; Scope restricts the rule to matching resource kinds.
type Rule struct {
	// Path addresses an exact document location (pipe syntax, "data|FIELD").
	Path string `json:"path,omitempty"`

	// Key targets every mapping entry with this key name at any depth.
	// Glob syntax is allowed ("*.image").
	Key string `json:"key,omitempty"`

	// Match is a regular expression applied to string leaf values.
	Match string `json:"match,omitempty"`

	// Replacement is the new value. For Match rules it may reference
	// capture groups ($1).
	Replacement string `json:"replacement"`

	// Scope is a resource kind glob; empty or "*" applies everywhere.
	Scope string `json:"scope,omitempty"`
}

func (r Rule) describe() string {
	switch {
	case r.Path != "":
		return "path " + r.Path
	case r.Key != "":
		return "key " + r.Key
	default:
		return "match " + r.Match
	}
}

// Warning reports a rule that failed structurally. Non-fatal: collected and
// returned alongside the transformed document, never raised.
type Warning struct {
	// Rule describes the failing rule.
	Rule string

	// Path is the document location at fault, when known.
	Path string

	// Reason explains the failure.
	Reason string
}

func (w Warning) String() string {
	if w.Path != "" {
		return fmt.Sprintf("rule %s at %s: %s", w.Rule, w.Path, w.Reason)
	}
	return fmt.Sprintf("rule %s: %s", w.Rule, w.Reason)
}

// Load reads an ordered rule list from a YAML file. A missing file yields an
// empty list.
func Load(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	var rs []Rule
	if err := sigsyaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	return rs, nil
}

// Apply executes the rules strictly in declaration order against a document
// of the given resource kind. A rule that matches nothing is a no-op; rule
// sets are shared across kinds that do not all contain every targeted field.
// Structural failures are collected as warnings, not errors.
func Apply(doc *yaml.Node, kind string, rs []Rule) []Warning {
	var warnings []Warning
	root := manifest.Root(doc)

	for _, r := range rs {
		if !inScope(r.Scope, kind) {
			continue
		}
		switch {
		case r.Path != "":
			warnings = appendWarning(warnings, applyPath(root, r))
		case r.Key != "":
			warnings = appendWarning(warnings, applyKey(root, r))
		case r.Match != "":
			warnings = appendWarning(warnings, applyMatch(root, r))
		default:
			warnings = append(warnings, Warning{
				Rule:   "(empty)",
				Reason: "rule has no path, key, or match selector",
			})
		}
	}
	return warnings
}

func appendWarning(warnings []Warning, w *Warning) []Warning {
	if w != nil {
		warnings = append(warnings, *w)
	}
	return warnings
}

// inScope reports whether the rule's kind glob covers the document kind.
func inScope(scope, kind string) bool {
	if scope == "" || scope == "*" {
		return true
	}
	g, err := glob.Compile(strings.ToLower(scope))
	if err != nil {
		// An uncompilable scope matches nothing.
		return false
	}
	return g.Match(strings.ToLower(kind))
}

func applyPath(root *yaml.Node, r Rule) *Warning {
	parts := manifest.SplitPath(r.Path)
	target, err := manifest.Lookup(root, parts)
	if err != nil {
		return &Warning{Rule: r.describe(), Path: r.Path, Reason: "ancestor is not a mapping"}
	}
	if target == nil {
		return nil // absent path: expected and tolerated
	}
	*target = *manifest.Scalar(r.Replacement)
	return nil
}

func applyKey(root *yaml.Node, r Rule) *Warning {
	g, err := glob.Compile(r.Key)
	if err != nil {
		return &Warning{Rule: r.describe(), Reason: fmt.Sprintf("invalid key glob: %v", err)}
	}

	_ = manifest.WalkMappings(root, func(_ []string, m *yaml.Node) error {
		for i := 0; i+1 < len(m.Content); i += 2 {
			if g.Match(m.Content[i].Value) {
				m.Content[i+1] = manifest.Scalar(r.Replacement)
			}
		}
		return nil
	})
	return nil
}

func applyMatch(root *yaml.Node, r Rule) *Warning {
	re, err := regexp.Compile(r.Match)
	if err != nil {
		return &Warning{Rule: r.describe(), Reason: fmt.Sprintf("invalid pattern: %v", err)}
	}

	_ = manifest.WalkStrings(root, func(_ []string, leaf *yaml.Node) error {
		leaf.Value = re.ReplaceAllString(leaf.Value, r.Replacement)
		return nil
	})
	return nil
}
