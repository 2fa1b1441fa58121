package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 64, cfg.SmallChunkThreshold)
	require.True(t, cfg.MergeSmallChunks)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clustercore.yaml")
	contents := []byte("table: events\ncolumns:\n  - column: id\n    num_clusters: 8\nsmall_chunk_threshold: 10\n")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "events", cfg.Table)
	require.Len(t, cfg.Columns, 1)
	require.Equal(t, "id", cfg.Columns[0].Column)
	require.Equal(t, 8, cfg.Columns[0].NumClusters)
	require.Equal(t, 10, cfg.SmallChunkThreshold)
	require.True(t, cfg.MergeSmallChunks, "a default should still apply when the file doesn't override it")
}

func TestLoad_RejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/clustercore.yaml")
	require.Error(t, err)
}
