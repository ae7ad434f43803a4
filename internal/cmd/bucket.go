package cmd

import (
	"context"

	"github.com/mlisa-ops/drgen/internal/config"
	"github.com/mlisa-ops/drgen/internal/output"
	"github.com/mlisa-ops/drgen/internal/storage"
)

// openBucket opens the configured artifact bucket. With SkipBucket set it
// returns a nil bucket and commands run purely against local files.
func openBucket(ctx context.Context, cfg *config.Config) (storage.Bucket, func(), error) {
	if cfg.SkipBucket {
		output.Debug("bucket disabled, using local files only")
		return nil, func() {}, nil
	}

	gcs, err := storage.NewGCSBucket(ctx, cfg.Bucket)
	if err != nil {
		return nil, nil, err
	}
	return gcs, func() {
		if err := gcs.Close(); err != nil {
			output.Debug("closing bucket client", "error", err)
		}
	}, nil
}
