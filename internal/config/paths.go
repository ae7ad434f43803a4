package config

import (
	"fmt"
	"path/filepath"

	"github.com/drone/envsubst"

	"github.com/mlisa-ops/drgen/internal/ipalloc"
)

// defaultManifestPattern mirrors the conventional artifact layout:
// one file per environment/cluster/kind/site.
const defaultManifestPattern = "${ENVIRONMENT}/${CLUSTER}${SITE_SUFFIX}-${KIND}-resources.yaml"

// ManifestPath expands the manifest path pattern for one artifact and roots
// it under OutputDir.
func (c *Config) ManifestPath(environment, cluster, kind string, site ipalloc.Site) (string, error) {
	rel, err := expandPattern(c.ManifestPattern, environment, cluster, kind, site)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.OutputDir, rel), nil
}

// TFVarsPath returns the Terraform variable file path for one cluster site.
func (c *Config) TFVarsPath(environment, cluster string, site ipalloc.Site) string {
	return filepath.Join(c.TFVarsDir, environment, cluster+site.Suffix()+".tfvars.json")
}

// CatalogPath resolves the catalog file against the static config directory.
func (c *Config) CatalogPath() string {
	if filepath.IsAbs(c.CatalogFile) {
		return c.CatalogFile
	}
	return filepath.Join(c.StaticConfigDir, c.CatalogFile)
}

// PlaceholderPath returns the placeholder value file for one cluster kind.
func (c *Config) PlaceholderPath(environment, cluster, kind string) string {
	return filepath.Join(c.StaticConfigDir, environment, cluster, kind+"-placeholders.yaml")
}

// RulesPath returns the search-replace rule file for one cluster kind.
func (c *Config) RulesPath(environment, cluster, kind string) string {
	return filepath.Join(c.StaticConfigDir, environment, cluster, kind+"-replacements.yaml")
}

// IndexPath returns the resource index file for one cluster kind.
func (c *Config) IndexPath(environment, cluster, kind string) string {
	return filepath.Join(c.StaticConfigDir, environment, cluster, kind+"-resources.yaml")
}

// TemplatePath returns the extracted manifest template file for one cluster
// kind. fetch writes it; generate reads it.
func (c *Config) TemplatePath(environment, cluster, kind string) string {
	return filepath.Join(c.StaticConfigDir, environment, cluster, kind+"-manifests.yaml")
}

func expandPattern(pattern, environment, cluster, kind string, site ipalloc.Site) (string, error) {
	vars := map[string]string{
		"ENVIRONMENT": environment,
		"CLUSTER":     cluster,
		"KIND":        kind,
		"SITE":        string(site),
		"SITE_SUFFIX": site.Suffix(),
	}

	expanded, err := envsubst.Eval(pattern, func(name string) string {
		return vars[name]
	})
	if err != nil {
		return "", fmt.Errorf("expanding path pattern %q: %w", pattern, err)
	}
	return expanded, nil
}
