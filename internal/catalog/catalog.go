// Package catalog loads the environment/cluster configuration catalog and
// resolves it into the concrete per-site parameter set the engine consumes.
package catalog

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/mlisa-ops/drgen/internal/ipalloc"
)

// Catalog is the full configuration catalog, keyed by environment name.
type Catalog map[string]Environment

// Environment holds the per-environment settings.
type Environment struct {
	// ProjectID is the cloud project for the environment.
	ProjectID string `json:"project_id" validate:"required"`

	// Region is the primary-site region.
	Region string `json:"region" validate:"required"`

	// DRRegion is the disaster-recovery region.
	DRRegion string `json:"dr_region" validate:"required"`

	// Clusters maps cluster name to its settings.
	Clusters map[string]Cluster `json:"clusters" validate:"required"`
}

// Cluster holds the per-cluster settings.
type Cluster struct {
	// VPC is the VPC network name.
	VPC string `json:"vpc" validate:"required"`

	// DistinctVPC marks the DR site as living in its own VPC. Equal
	// primary/DR ranges are only legal with this set.
	DistinctVPC bool `json:"distinct_vpc,omitempty"`

	// IPRanges holds the per-site range specs.
	IPRanges IPRanges `json:"ip_ranges" validate:"required"`
}

// IPRanges holds the declared range layout of a cluster.
type IPRanges struct {
	// Primary is the primary-site range spec.
	Primary *ipalloc.Spec `json:"primary" validate:"required"`

	// DR is the disaster-recovery range spec. May be omitted when
	// DeriveDROffset is set.
	DR *ipalloc.Spec `json:"dr,omitempty"`

	// DeriveDROffset derives DR ranges by shifting each primary range
	// forward this many times its own size. Only consulted when DR is nil.
	DeriveDROffset int `json:"derive_dr_offset,omitempty"`
}

// SiteConfig is the resolved, immutable parameter set for one
// (environment, cluster). Constructed only by Resolve; consumed by the
// allocator and the placeholder engine.
type SiteConfig struct {
	Environment string
	Cluster     string
	ProjectID   string
	Region      string
	DRRegion    string
	VPCName     string
	DistinctVPC bool
	IPRanges    IPRanges
}

// RegionFor returns the region serving the given site.
func (c SiteConfig) RegionFor(site ipalloc.Site) string {
	if site == ipalloc.SiteDR {
		return c.DRRegion
	}
	return c.Region
}

// Load reads and decodes a catalog file (JSON or YAML).
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes catalog content (JSON or YAML).
func Parse(data []byte) (Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return cat, nil
}
