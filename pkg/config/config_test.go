package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/canopy-network/nodedist/pkg/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	base := t.TempDir()
	t.Setenv("NODEDIST_BASE_DIR", base)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "json"), cfg.JSONDir)
	assert.Equal(t, filepath.Join(base, "config"), cfg.ConfigDir)
	assert.Equal(t, filepath.Join(base, "results"), cfg.OutputDir)
	assert.Equal(t, StateFile, cfg.StateBackend)
	assert.False(t, cfg.UsesRedis())
	assert.Equal(t, ":3003", cfg.Schedule.Addr)

	kind, err := cfg.Kind("flow")
	require.NoError(t, err)
	assert.Equal(t, analysis.KindRolePartitioned, kind.Name())

	kind, err = cfg.Kind("aptos")
	require.NoError(t, err)
	assert.Equal(t, analysis.KindGeneric, kind.Name())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nodedist.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_dir = "/srv/nodedist"
state_backend = "redis"

[lookup]
geo_backend = "ipinfo"
workers = 8

[schedule]
cron = "0 */30 * * * *"
run_timeout = "10m"

[chains.sui]
kind = "role_partitioned"
roles = ["validator", "fullnode"]
providers = ["AWS"]
`), 0o644))
	t.Setenv("NODEDIST_CONFIG", path)
	t.Setenv("LOOKUP_WORKERS", "3")
	t.Setenv("NODEDIST_CONFIG_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/nodedist", cfg.BaseDir)
	assert.Equal(t, StateRedis, cfg.StateBackend)
	assert.True(t, cfg.UsesRedis(), "redis state backend needs a connection")
	assert.Equal(t, GeoIPInfo, cfg.Lookup.GeoBackend)
	assert.Equal(t, 3, cfg.Lookup.Workers)
	assert.Equal(t, "0 */30 * * * *", cfg.Schedule.Cron)
	assert.Equal(t, []string{"AWS"}, cfg.Chain("sui").Providers)

	kind, err := cfg.Kind("sui")
	require.NoError(t, err)
	assert.Equal(t, []string{"validator", "fullnode"}, kind.(analysis.RolePartitioned).Roles)
}

func TestLoadKeysFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeysFile), []byte(`{"ipinfo": "tok"}`), 0o644))
	t.Setenv("NODEDIST_CONFIG_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", cfg.Lookup.IPInfoToken)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.StateBackend = "s3"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Chains["x"] = ChainConfig{Kind: "sharded"}
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Schedule.RunTimeout = "soon"
	require.Error(t, cfg.Validate())
}
