package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironsheep/quadtree-mcp/internal/quadtree"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	opts, err := cfg.Build.Options()
	require.NoError(t, err)
	require.Equal(t, quadtree.MetricMaxChannel, opts.Metric)
	require.Equal(t, 1, opts.MinLeafSize)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
build:
  tolerance: 12.5
  min_leaf_size: 4
  metric: lab
  blur_sigma: 0.8
store:
  compress: false
log:
  level: debug
  mode: development
render:
  line_color: "#00FF0080"
  max_pixels: 1000000
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 12.5, cfg.Build.Tolerance)
	require.Equal(t, 4, cfg.Build.MinLeafSize)
	require.Equal(t, "lab", cfg.Build.Metric)
	require.Equal(t, 0.8, cfg.Build.BlurSigma)
	require.Equal(t, 2, cfg.Build.ParallelDepth, "unset keys keep their defaults")
	require.False(t, cfg.Store.Compress)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "development", cfg.Log.Mode)
	require.Equal(t, "#00FF0080", cfg.Render.LineColor)
	require.Equal(t, 1.0, cfg.Render.LineWidth)
	require.Equal(t, int64(1000000), cfg.Render.MaxPixels)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUADTREE_MCP_LOG_LEVEL", "warn")
	t.Setenv("QUADTREE_MCP_BUILD_METRIC", "variance")
	t.Setenv("QUADTREE_MCP_BUILD_TOLERANCE", "40")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "variance", cfg.Build.Metric)
	require.Equal(t, 40.0, cfg.Build.Tolerance)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Build.MinLeafSize = 0
	cfg.Build.BlurSigma = -1
	cfg.Log.Mode = "verbose"
	cfg.Render.LineWidth = 0
	cfg.Render.MaxPixels = 0

	err := cfg.Validate()
	require.ErrorIs(t, err, quadtree.ErrConfig)
	for _, key := range []string{"min leaf size", "build.blur_sigma", "log.mode", "render.line_width", "render.max_pixels"} {
		require.Contains(t, err.Error(), key)
	}
}

func TestLoadRejectsDeepParallelism(t *testing.T) {
	path := writeConfig(t, "build:\n  parallel_depth: 64\n")
	_, err := Load(path)
	require.ErrorIs(t, err, quadtree.ErrConfig)
	require.Contains(t, err.Error(), "parallel depth")
}

func TestLoadInvalidFile(t *testing.T) {
	path := writeConfig(t, "build:\n  metric: sobel\n")
	_, err := Load(path)
	require.ErrorIs(t, err, quadtree.ErrConfig)
}
