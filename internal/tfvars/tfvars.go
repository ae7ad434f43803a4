// Package tfvars builds the flat Terraform variable bundle for one site.
package tfvars

import (
	"encoding/json"
	"fmt"

	"github.com/mlisa-ops/drgen/internal/catalog"
	"github.com/mlisa-ops/drgen/internal/ipalloc"
)

// Build returns the flat key→value map for a site. Keys are Terraform
// variable names; all values are strings.
func Build(site catalog.SiteConfig, ranges ipalloc.Pair, s ipalloc.Site) map[string]string {
	spec := ranges.ForSite(s)
	return map[string]string{
		"environment":                 site.Environment,
		"cluster":                     site.Cluster,
		"project_id":                  site.ProjectID,
		"region":                      site.RegionFor(s),
		"vpc_name":                    site.VPCName,
		"subnet_ip_cidr_range":        spec.SubnetCIDR,
		"pods_ip_cidr_range":          spec.PodsCIDR,
		"services_ip_cidr_range":      spec.ServicesCIDR,
		"vpc_connector_ip_cidr_range": spec.ConnectorCIDR,
		"master_ipv4_cidr_block":      spec.MasterCIDR,
	}
}

// Marshal serializes a variable bundle as an indented JSON object with
// sorted keys, so output is byte-deterministic.
func Marshal(vars map[string]string) ([]byte, error) {
	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tfvars: %w", err)
	}
	return append(data, '\n'), nil
}

// Filename returns the site-scoped artifact path:
// {environment}/{cluster}[-dr].tfvars.json
func Filename(environment, cluster string, s ipalloc.Site) string {
	return fmt.Sprintf("%s/%s%s.tfvars.json", environment, cluster, s.Suffix())
}
