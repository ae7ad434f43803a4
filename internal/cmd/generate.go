package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mlisa-ops/drgen/internal/catalog"
	"github.com/mlisa-ops/drgen/internal/config"
	"github.com/mlisa-ops/drgen/internal/errors"
	"github.com/mlisa-ops/drgen/internal/ipalloc"
	"github.com/mlisa-ops/drgen/internal/manifest"
	"github.com/mlisa-ops/drgen/internal/normalize"
	"github.com/mlisa-ops/drgen/internal/output"
	"github.com/mlisa-ops/drgen/internal/placeholder"
	"github.com/mlisa-ops/drgen/internal/rules"
	"github.com/mlisa-ops/drgen/internal/storage"
	"github.com/mlisa-ops/drgen/internal/tfvars"
	"github.com/mlisa-ops/drgen/internal/transform"
)

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	var (
		kindsFlag  []string
		sitesFlag  []string
		uploadFlag bool
		tfvarsFlag bool
	)

	cmd := &cobra.Command{
		Use:   "generate <environment> <cluster>",
		Short: "Generate site-specific manifests and Terraform variables",
		Long: `Generate the primary and disaster-recovery artifacts for one cluster.

For every resource kind the command resolves the catalog, validates the IP
range layout, substitutes placeholders into the extracted manifest templates,
applies the kind's search-replace rules, and writes the canonical YAML
artifact per site, plus the matching Terraform variable bundles.

Examples:
  # Generate every kind for both sites
  drgen generate stg rai

  # Generate a single kind for the DR site only
  drgen generate prod-us rai --kinds druid --sites dr

  # Generate and push artifacts to the bucket
  drgen generate prod-eu r1-rai --upload`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(args[0], args[1], kindsFlag, sitesFlag, uploadFlag, tfvarsFlag)
		},
	}

	cmd.Flags().StringSliceVar(&kindsFlag, "kinds", nil,
		"Resource kinds to generate (default: all kinds with a resource index)")
	cmd.Flags().StringSliceVar(&sitesFlag, "sites", []string{"primary", "dr"},
		"Sites to generate: primary, dr")
	cmd.Flags().BoolVar(&uploadFlag, "upload", false,
		"Upload generated artifacts to the bucket")
	cmd.Flags().BoolVar(&tfvarsFlag, "tfvars", true,
		"Also write Terraform variable bundles")
	return cmd
}

func runGenerate(environment, cluster string, kindNames, siteNames []string, upload, withTFVars bool) error {
	ctx := context.Background()
	cfg := GetConfig()

	sites, err := parseSites(siteNames)
	if err != nil {
		return exitError(err)
	}

	bucket, closeBucket, err := openBucket(ctx, cfg)
	if err != nil {
		return exitError(err)
	}
	defer closeBucket()

	if bucket != nil {
		err := output.RunWithSpinner(ctx, func() error {
			return bucket.Download(ctx, storage.ObjectName(cfg.StaticConfigDir), cfg.StaticConfigDir)
		}, output.WithTitle("Downloading configuration..."))
		if err != nil {
			return exitError(fmt.Errorf("downloading static configs: %w", err))
		}
	}

	cat, err := catalog.Load(cfg.CatalogPath())
	if err != nil {
		return exitError(err)
	}

	if len(kindNames) == 0 {
		kindNames, err = discoverKinds(cfg, environment, cluster)
		if err != nil {
			return exitError(err)
		}
	}
	if len(kindNames) == 0 {
		return exitError(errors.Wrap(errors.ErrNotFound,
			fmt.Sprintf("no resource kinds configured for %s/%s", environment, cluster)))
	}

	kinds, err := loadKinds(cfg, environment, cluster, kindNames)
	if err != nil {
		return exitError(err)
	}

	orch := &transform.Orchestrator{Catalog: cat, Kinds: kinds}
	results, err := orch.Run(environment, cluster, kindNames, sites)
	if err != nil {
		return exitError(err)
	}

	var written []string
	for _, kind := range kindNames {
		for _, site := range sites {
			res := results[transform.Key{ResourceKind: kind, Site: site}]

			data, err := normalize.MarshalAll(res.Documents)
			if err != nil {
				return exitError(err)
			}
			path, err := cfg.ManifestPath(environment, cluster, kind, site)
			if err != nil {
				return exitError(err)
			}
			if err := writeFile(path, data); err != nil {
				return exitError(err)
			}
			written = append(written, path)

			output.Println(output.FormatArtifactLine(artifactLabel(environment, cluster, kind, site), "written"))
			for _, w := range res.Warnings {
				output.Println(output.FormatWarningLine(w.String()))
			}
		}
	}

	if withTFVars {
		paths, err := writeTFVars(cfg, cat, environment, cluster, sites)
		if err != nil {
			return exitError(err)
		}
		written = append(written, paths...)
	}

	if upload {
		if bucket == nil {
			return exitError(errors.Wrap(errors.ErrValidation,
				"--upload conflicts with --skip-bucket"))
		}
		for _, path := range written {
			if err := bucket.Upload(ctx, path, storage.ObjectName(path)); err != nil {
				return exitError(fmt.Errorf("uploading %s: %w", path, err))
			}
		}
		output.Info("uploaded artifacts", "count", len(written), "bucket", cfg.Bucket)
	}

	return nil
}

// writeTFVars writes one Terraform variable bundle per site. The allocation
// runs once: both bundles come from the same validated pair.
func writeTFVars(cfg *config.Config, cat catalog.Catalog, environment, cluster string, sites []ipalloc.Site) ([]string, error) {
	site, err := catalog.Resolve(cat, environment, cluster)
	if err != nil {
		return nil, err
	}
	ranges, err := ipalloc.Allocate(*site.IPRanges.Primary, site.IPRanges.DR, ipalloc.Options{
		DeriveOffset: site.IPRanges.DeriveDROffset,
		DistinctVPC:  site.DistinctVPC,
	})
	if err != nil {
		return nil, err
	}

	var written []string
	for _, s := range sites {
		data, err := tfvars.Marshal(tfvars.Build(site, ranges, s))
		if err != nil {
			return nil, err
		}
		path := cfg.TFVarsPath(environment, cluster, s)
		if err := writeFile(path, data); err != nil {
			return nil, err
		}
		written = append(written, path)
		output.Println(output.FormatArtifactLine(
			fmt.Sprintf("%s/%s%s.tfvars", environment, cluster, s.Suffix()), "written"))
	}
	return written, nil
}

// loadKinds reads the per-kind transformation inputs: placeholder file, rule
// list, and extracted manifest templates.
func loadKinds(cfg *config.Config, environment, cluster string, names []string) (map[string]transform.Kind, error) {
	kinds := make(map[string]transform.Kind, len(names))
	for _, name := range names {
		ph, err := placeholder.LoadFile(cfg.PlaceholderPath(environment, cluster, name))
		if err != nil {
			return nil, err
		}
		rs, err := rules.Load(cfg.RulesPath(environment, cluster, name))
		if err != nil {
			return nil, err
		}

		templatePath := cfg.TemplatePath(environment, cluster, name)
		data, err := os.ReadFile(templatePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrap(errors.ErrNotFound,
					fmt.Sprintf("no manifest templates for kind %q (expected %s; run fetch first)", name, templatePath))
			}
			return nil, fmt.Errorf("reading templates for %s: %w", name, err)
		}
		docs, err := manifest.ParseAll(data)
		if err != nil {
			return nil, fmt.Errorf("parsing templates for %s: %w", name, err)
		}

		kinds[name] = transform.Kind{
			Placeholders: ph,
			Rules:        rs,
			Manifests:    docs,
		}
	}
	return kinds, nil
}

// discoverKinds lists the resource kinds with an index file under the
// cluster's static config directory.
func discoverKinds(cfg *config.Config, environment, cluster string) ([]string, error) {
	pattern := cfg.IndexPath(environment, cluster, "*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("discovering kinds: %w", err)
	}

	var kinds []string
	for _, m := range matches {
		base := filepath.Base(m)
		kinds = append(kinds, strings.TrimSuffix(base, "-resources.yaml"))
	}
	sort.Strings(kinds)
	return kinds, nil
}

func parseSites(names []string) ([]ipalloc.Site, error) {
	var sites []ipalloc.Site
	for _, n := range names {
		switch ipalloc.Site(strings.ToLower(n)) {
		case ipalloc.SitePrimary:
			sites = append(sites, ipalloc.SitePrimary)
		case ipalloc.SiteDR:
			sites = append(sites, ipalloc.SiteDR)
		default:
			return nil, errors.Wrap(errors.ErrValidation,
				fmt.Sprintf("unknown site %q (valid: primary, dr)", n))
		}
	}
	return sites, nil
}

func artifactLabel(environment, cluster, kind string, site ipalloc.Site) string {
	return fmt.Sprintf("%s/%s%s-%s", environment, cluster, site.Suffix(), kind)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
