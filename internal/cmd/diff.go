package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mlisa-ops/drgen/internal/diff"
	"github.com/mlisa-ops/drgen/internal/errors"
	"github.com/mlisa-ops/drgen/internal/ipalloc"
	"github.com/mlisa-ops/drgen/internal/output"
)

// NewDiffCmd creates the diff command.
func NewDiffCmd() *cobra.Command {
	var extraFlag []string

	cmd := &cobra.Command{
		Use:   "diff <environment> <cluster> <kind>",
		Short: "Check site parity between primary and DR artifacts",
		Long: `Compare the generated primary and DR artifacts of one resource kind.

The two artifacts must be distinguishable only by site-scoped values (IP
ranges, region). Any other difference is a parity violation and fails the
command.

Examples:
  # Check the druid artifacts of the staging rai cluster
  drgen diff stg rai druid

  # Allow an additional per-site field
  drgen diff prod-us rai kafka --site-scoped bucket_name`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(args[0], args[1], args[2], extraFlag)
		},
	}

	cmd.Flags().StringSliceVar(&extraFlag, "site-scoped", nil,
		"Additional field names or path fragments allowed to differ between sites")
	return cmd
}

func runDiff(environment, cluster, kind string, extraFragments []string) error {
	cfg := GetConfig()

	primary, err := readArtifact(cfg.ManifestPath(environment, cluster, kind, ipalloc.SitePrimary))
	if err != nil {
		return exitError(err)
	}
	dr, err := readArtifact(cfg.ManifestPath(environment, cluster, kind, ipalloc.SiteDR))
	if err != nil {
		return exitError(err)
	}

	report, err := diff.SiteParity(primary, dr, extraFragments...)
	if err != nil {
		return exitError(err)
	}

	if report.Rendered != "" {
		output.Println(report.Rendered)
	}

	if !report.InParity {
		for _, v := range report.Violations {
			output.Println(output.FormatWarningLine("parity violation at " + v))
		}
		return exitError(errors.Wrap(errors.ErrValidation,
			fmt.Sprintf("%s/%s %s: %d parity violations", environment, cluster, kind, len(report.Violations))))
	}

	output.Println(output.StyleSuccess.Render(
		fmt.Sprintf("%s/%s %s: sites in parity", environment, cluster, kind)))
	return nil
}

func readArtifact(path string, pathErr error) ([]byte, error) {
	if pathErr != nil {
		return nil, pathErr
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrNotFound,
				fmt.Sprintf("artifact %s does not exist; run generate first", path))
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
