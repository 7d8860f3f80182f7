package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5, cfg.FakeBlocks)
	assert.Equal(t, "medium", cfg.Complexity)
	assert.Equal(t, 2, cfg.PredicatesPerBranch)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.Equal(t, filepath.Join(".gfo", "cache"), cfg.CacheDir)
	assert.False(t, cfg.Verbose)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `fake_blocks: 9
complexity: high
predicates_per_branch: 4
seed: 1234
verbose: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.FakeBlocks)
	assert.Equal(t, "high", cfg.Complexity)
	assert.Equal(t, 4, cfg.PredicatesPerBranch)
	assert.Equal(t, int64(1234), cfg.Seed)
	assert.True(t, cfg.Verbose)

	// Unset keys keep their defaults.
	assert.Equal(t, filepath.Join(".gfo", "cache"), cfg.CacheDir)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFromFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fake_blocks: [oops"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadFromFile_InvalidValuesRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("complexity: extreme\n"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid complexity")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GFO_FAKE_BLOCKS", "12")
	t.Setenv("GFO_COMPLEXITY", "low")
	t.Setenv("GFO_PREDICATES_PER_BRANCH", "5")
	t.Setenv("GFO_SEED", "77")
	t.Setenv("GFO_CACHE_DIR", "/tmp/gfo-cache")
	t.Setenv("GFO_VERBOSE", "1")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 12, cfg.FakeBlocks)
	assert.Equal(t, "low", cfg.Complexity)
	assert.Equal(t, 5, cfg.PredicatesPerBranch)
	assert.Equal(t, int64(77), cfg.Seed)
	assert.Equal(t, "/tmp/gfo-cache", cfg.CacheDir)
	assert.True(t, cfg.Verbose)
}

func TestEnvOverrides_IgnoresGarbage(t *testing.T) {
	t.Setenv("GFO_FAKE_BLOCKS", "not-a-number")
	t.Setenv("GFO_PREDICATES_PER_BRANCH", "-3")
	t.Setenv("GFO_VERBOSE", "maybe")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 5, cfg.FakeBlocks)
	assert.Equal(t, 2, cfg.PredicatesPerBranch)
	assert.False(t, cfg.Verbose)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Complexity = "extreme"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.FakeBlocks = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.PredicatesPerBranch = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadUnchecked_SurfacesInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	require.NoError(t, os.MkdirAll(".gfo", 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(".gfo", "config.yaml"), []byte("complexity: extreme\n"), 0644))

	// Load refuses the file, but the unchecked variant hands the invalid
	// values back for inspection.
	_, err := Load()
	require.Error(t, err)

	cfg, err := LoadUnchecked()
	require.NoError(t, err)
	assert.Equal(t, "extreme", cfg.Complexity)
	assert.Error(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.FakeBlocks = 7
	cfg.Seed = 42
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
