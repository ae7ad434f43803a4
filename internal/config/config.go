// Package config loads the tool-level configuration: where the catalog and
// static config files live, where artifacts go, and which bucket backs them.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable prefix for drgen configuration.
const envPrefix = "DRGEN"

// Config is the resolved tool configuration.
type Config struct {
	// StaticConfigDir holds the catalog, placeholder, rule, and resource
	// index files.
	StaticConfigDir string `mapstructure:"staticConfigDir"`

	// CatalogFile is the configuration catalog path, relative to
	// StaticConfigDir unless absolute.
	CatalogFile string `mapstructure:"catalogFile"`

	// OutputDir receives generated Kubernetes artifacts.
	OutputDir string `mapstructure:"outputDir"`

	// TFVarsDir receives generated Terraform variable bundles.
	TFVarsDir string `mapstructure:"tfvarsDir"`

	// Bucket is the object storage bucket backing configs and artifacts.
	Bucket string `mapstructure:"bucket"`

	// SkipBucket disables bucket download/upload; everything stays local.
	SkipBucket bool `mapstructure:"skipBucket"`

	// ManifestPattern is the artifact path template for Kubernetes outputs.
	ManifestPattern string `mapstructure:"manifestPattern"`

	// Kubeconfig is the kubeconfig path for the discovery layer.
	Kubeconfig string `mapstructure:"kubeconfig"`

	// Context is the kubernetes context for the discovery layer.
	Context string `mapstructure:"context"`
}

// Loader loads and merges configuration from file and environment.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a configuration loader with defaults matching the
// conventional working-tree layout.
func NewLoader() *Loader {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("bucket", "DRGEN_BUCKET")
	_ = v.BindEnv("kubeconfig", "DRGEN_KUBECONFIG")
	_ = v.BindEnv("context", "DRGEN_CONTEXT")

	v.SetDefault("staticConfigDir", "./static-configs")
	v.SetDefault("catalogFile", "config.yaml")
	v.SetDefault("outputDir", "./kube-resources")
	v.SetDefault("tfvarsDir", "./tf-vars")
	v.SetDefault("bucket", "mlisa-dr-resource-backup")
	v.SetDefault("skipBucket", false)
	v.SetDefault("manifestPattern", defaultManifestPattern)

	return &Loader{v: v}
}

// Load reads the config file (optional) and unmarshals the merged view.
// Environment variables take precedence over file values.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
