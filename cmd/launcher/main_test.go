package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelforge/launcher-core/internal/config"
)

// newTestCmd returns a fresh command with every §6.7 flag bound to the
// shared flagCfg global, mirroring what init() does for rootCmd but
// isolated per test so Set calls on one test's command don't leak
// "changed" state into another.
func newTestCmd(t *testing.T) *cobra.Command {
	t.Helper()
	flagCfg = config.Default()
	cmd := &cobra.Command{Use: "test"}
	config.BindFlags(cmd, &flagCfg)
	return cmd
}

func TestResolveConfigDefaultsWhenNothingSet(t *testing.T) {
	cfgFile = ""
	cmd := newTestCmd(t)

	cfg, err := resolveConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.Default().IndexURL, cfg.IndexURL)
}

func TestResolveConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_root: "+dir+"\nparallel_fetches: 3\n"), 0o644))

	cfgFile = path
	defer func() { cfgFile = "" }()
	cmd := newTestCmd(t)

	cfg, err := resolveConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.StoreRoot)
	assert.Equal(t, 3, cfg.ParallelFetches)
}

func TestResolveConfigFlagOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_root: "+dir+"\nparallel_fetches: 3\n"), 0o644))

	cfgFile = path
	defer func() { cfgFile = "" }()
	cmd := newTestCmd(t)
	require.NoError(t, cmd.Flags().Set("parallel-fetches", "11"))

	cfg, err := resolveConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 11, cfg.ParallelFetches, "explicit flag beats the config file")
	assert.Equal(t, dir, cfg.StoreRoot, "file value kept for fields no flag touched")
}

func TestResolveConfigRejectsInvalidParallelFetches(t *testing.T) {
	cfgFile = ""
	cmd := newTestCmd(t)
	require.NoError(t, cmd.Flags().Set("parallel-fetches", "99"))
	require.NoError(t, cmd.Flags().Set("store-root", t.TempDir()))

	_, err := resolveConfig(cmd)
	assert.Error(t, err)
}

func TestOverrideFieldCoversEveryBoundFlag(t *testing.T) {
	flags := config.Default()
	flags.StoreRoot = "/a"
	flags.ObjectsBaseURL = "https://b"
	flags.IndexURL = "https://c"
	flags.ParallelFetches = 2
	flags.ConnectTimeoutMS = 1
	flags.ReadTimeoutMS = 2
	flags.MaxRetries = 3
	flags.UserAgent = "ua"
	flags.StrictAssets = true

	out := config.Config{}
	for _, name := range flagNames {
		overrideField(&out, &flags, name)
	}
	assert.Equal(t, flags, out)
}
