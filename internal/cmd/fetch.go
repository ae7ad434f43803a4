package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mlisa-ops/drgen/internal/kube"
	"github.com/mlisa-ops/drgen/internal/manifest"
	"github.com/mlisa-ops/drgen/internal/normalize"
	"github.com/mlisa-ops/drgen/internal/output"
	"github.com/mlisa-ops/drgen/internal/placeholder"
	"github.com/mlisa-ops/drgen/internal/storage"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	var uploadFlag bool

	cmd := &cobra.Command{
		Use:   "fetch <environment> <cluster> <kind>",
		Short: "Extract and templatize live resources from a cluster",
		Long: `Extract the indexed resources of one kind from a live cluster.

The command reads the kind's resource index, fetches each named resource,
strips server-managed fields, overwrites the configured paths with
placeholder tokens, and writes the resulting manifest templates for
generate to consume.

Examples:
  # Extract the druid resources of the staging rai cluster
  drgen fetch stg rai druid --context stg-rai

  # Extract and push the templates to the bucket
  drgen fetch prod-us rai kafka --upload`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(args[0], args[1], args[2], uploadFlag)
		},
	}

	cmd.Flags().BoolVar(&uploadFlag, "upload", false,
		"Upload the extracted templates to the bucket")
	return cmd
}

func runFetch(environment, cluster, kind string, upload bool) error {
	ctx := context.Background()
	cfg := GetConfig()

	idx, err := kube.LoadIndex(cfg.IndexPath(environment, cluster, kind))
	if err != nil {
		return exitError(err)
	}

	client, err := kube.NewClient(kube.ClientOptions{
		Kubeconfig: GetKubeconfig(),
		Context:    GetContext(),
	})
	if err != nil {
		return exitError(err)
	}

	phFile, err := placeholder.LoadFile(cfg.PlaceholderPath(environment, cluster, kind))
	if err != nil {
		return exitError(err)
	}

	var fetched []kube.Fetched
	err = output.RunWithSpinner(ctx, func() error {
		var fetchErr error
		fetched, fetchErr = client.Fetch(ctx, idx)
		return fetchErr
	}, output.WithTitle(fmt.Sprintf("Fetching %s resources...", kind)))
	if err != nil {
		return exitError(err)
	}

	docs := make([]*yaml.Node, 0, len(fetched))
	for _, f := range fetched {
		doc, err := manifest.FromUnstructured(f.Object)
		if err != nil {
			return exitError(fmt.Errorf("converting %s/%s: %w", f.Resource, f.Name, err))
		}
		if err := placeholder.Templatize(doc, phFile, f.Name); err != nil {
			return exitError(err)
		}
		docs = append(docs, doc)
	}

	data, err := normalize.MarshalAll(docs)
	if err != nil {
		return exitError(err)
	}
	path := cfg.TemplatePath(environment, cluster, kind)
	if err := writeFile(path, data); err != nil {
		return exitError(err)
	}

	output.Println(output.FormatArtifactLine(
		fmt.Sprintf("%s/%s-%s-templates", environment, cluster, kind), "written"))
	output.Info("extracted resources", "kind", kind, "count", len(docs))

	if upload {
		bucket, closeBucket, err := openBucket(ctx, cfg)
		if err != nil {
			return exitError(err)
		}
		defer closeBucket()
		if bucket == nil {
			return nil
		}
		if err := bucket.Upload(ctx, path, storage.ObjectName(path)); err != nil {
			return exitError(fmt.Errorf("uploading %s: %w", path, err))
		}
		output.Info("uploaded templates", "bucket", cfg.Bucket)
	}

	return nil
}
