package kube

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/mlisa-ops/drgen/internal/manifest"
	"github.com/mlisa-ops/drgen/internal/output"
)

// Index lists the resources to extract for one resource kind, in document
// order. The "Namespaces" group must come first: its first entry names the
// namespace the remaining resources live in.
type Index struct {
	// Groups are (resource type → names) in declaration order.
	Groups []IndexGroup
}

// IndexGroup is one resource type with its named instances.
type IndexGroup struct {
	Resource string
	Names    []string
}

// Resources whose upstream chart pins them to kube-system regardless of the
// index namespace.
var kubeSystemPinned = map[string]bool{
	"mlisa-monitoring-fluentd":        true,
	"mlisa-monitoring-fluentd-config": true,
}

// LoadIndex reads a resource index file, preserving group order.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resource index: %w", err)
	}

	root, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing resource index: %w", err)
	}
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("resource index %s: expected a mapping of resource types", path)
	}

	idx := &Index{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		val := root.Content[i+1]
		if val.Kind != yaml.SequenceNode {
			output.Warn("skipping non-list resource group", "group", key)
			continue
		}
		group := IndexGroup{Resource: key}
		for _, item := range val.Content {
			if name := strings.TrimSpace(item.Value); name != "" {
				group.Names = append(group.Names, name)
			}
		}
		idx.Groups = append(idx.Groups, group)
	}
	return idx, nil
}

// Namespace returns the index's target namespace: the first entry of the
// "Namespaces" group.
func (idx *Index) Namespace() string {
	for _, g := range idx.Groups {
		if g.Resource == "Namespaces" && len(g.Names) > 0 {
			return g.Names[0]
		}
	}
	return ""
}

// Fetched is one extracted and cleaned resource document.
type Fetched struct {
	Resource string
	Name     string
	Object   map[string]interface{}
}

// Fetch retrieves every indexed resource from the cluster and strips
// server-managed fields. Missing resources are logged and skipped, matching
// extraction semantics: absence is expected across environments.
func (c *Client) Fetch(ctx context.Context, idx *Index) ([]Fetched, error) {
	namespace := idx.Namespace()
	var out []Fetched

	for _, group := range idx.Groups {
		if group.Resource == "Namespaces" {
			continue
		}
		for _, name := range group.Names {
			ns := namespace
			if kubeSystemPinned[name] {
				ns = "kube-system"
			}

			obj, err := c.get(ctx, group.Resource, ns, name)
			if err != nil {
				if apierrors.IsNotFound(err) {
					output.Warn("resource not found", "resource", group.Resource, "name", name)
					continue
				}
				return nil, fmt.Errorf("fetching %s/%s: %w", group.Resource, name, err)
			}

			manifest.Clean(obj.Object)
			out = append(out, Fetched{
				Resource: group.Resource,
				Name:     name,
				Object:   obj.Object,
			})
			output.Debug("fetched resource", "resource", group.Resource, "name", name)
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, resource, namespace, name string) (*unstructured.Unstructured, error) {
	mapping, err := c.mappingFor(resource)
	if err != nil {
		return nil, err
	}

	if mapping.Scope.Name() == meta.RESTScopeNameNamespace && namespace != "" {
		return c.Dynamic.Resource(mapping.Resource).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	}
	return c.Dynamic.Resource(mapping.Resource).Get(ctx, name, metav1.GetOptions{})
}

// mappingFor resolves a kubectl-style resource type name ("deployment",
// "StatefulSet", "pvc") to its REST mapping.
func (c *Client) mappingFor(resource string) (*meta.RESTMapping, error) {
	gvk, err := c.Mapper.KindFor(schema.GroupVersionResource{Resource: strings.ToLower(resource)})
	if err == nil {
		m, err := c.Mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", resource, err)
		}
		return m, nil
	}

	// Fall back to treating the index key as a kind name.
	m, err := c.Mapper.RESTMapping(schema.GroupKind{Kind: resource})
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", resource, err)
	}
	return m, nil
}
