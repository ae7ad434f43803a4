package cmd

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisa-ops/drgen/internal/config"
	"github.com/mlisa-ops/drgen/internal/errors"
	"github.com/mlisa-ops/drgen/internal/ipalloc"
)

func TestParseSites(t *testing.T) {
	sites, err := parseSites([]string{"primary", "dr"})
	require.NoError(t, err)
	assert.Equal(t, []ipalloc.Site{ipalloc.SitePrimary, ipalloc.SiteDR}, sites)

	sites, err = parseSites([]string{"DR"})
	require.NoError(t, err)
	assert.Equal(t, []ipalloc.Site{ipalloc.SiteDR}, sites)

	_, err = parseSites([]string{"secondary"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
}

func TestDiscoverKinds(t *testing.T) {
	dir := t.TempDir()
	clusterDir := filepath.Join(dir, "stg", "rai")
	require.NoError(t, os.MkdirAll(clusterDir, 0o755))
	for _, f := range []string{
		"kafka-resources.yaml",
		"druid-resources.yaml",
		"druid-placeholders.yaml",
		"monitoring-resources.yaml",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(clusterDir, f), []byte("{}\n"), 0o644))
	}

	cfg := &config.Config{StaticConfigDir: dir}
	kinds, err := discoverKinds(cfg, "stg", "rai")
	require.NoError(t, err)
	assert.Equal(t, []string{"druid", "kafka", "monitoring"}, kinds)
}

func TestDiscoverKindsEmptyCluster(t *testing.T) {
	cfg := &config.Config{StaticConfigDir: t.TempDir()}
	kinds, err := discoverKinds(cfg, "stg", "rai")
	require.NoError(t, err)
	assert.Empty(t, kinds)
}

func TestArtifactLabel(t *testing.T) {
	assert.Equal(t, "stg/rai-druid", artifactLabel("stg", "rai", "druid", ipalloc.SitePrimary))
	assert.Equal(t, "stg/rai-dr-druid", artifactLabel("stg", "rai", "druid", ipalloc.SiteDR))
}

func TestExitErrorMapping(t *testing.T) {
	assert.Nil(t, exitError(nil))

	err := exitError(errors.Wrap(errors.ErrConflict, "ranges overlap"))
	var exitErr *errors.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, errors.ExitConflictError, exitErr.Code)

	// Already-coded errors pass through unchanged.
	same := exitError(exitErr)
	assert.Same(t, exitErr, same)
}
