package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/sixfence/internal/acl"
	"grimm.is/sixfence/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sixfence.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
acl {
  backend = "memory"
}
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "sixfence", cfg.ACL.Prefix)
	require.Equal(t, config.BackendMemory, cfg.ACL.Backend)
	require.Equal(t, `^Vlan(\d+)$`, cfg.SviPattern)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := writeConfig(t, `
acl {
  backend = "eapi"
}
`)
	// eapi backend without an eapi block must not load.
	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestBuildStoreMemory(t *testing.T) {
	cfg := config.Default()
	cfg.ACL.Backend = config.BackendMemory

	store, err := buildStore(cfg)
	require.NoError(t, err)
	_, ok := store.(*acl.MemoryStore)
	require.True(t, ok)
}

func TestBuildStoreEapi(t *testing.T) {
	cfg := config.Default()
	cfg.ACL.Backend = config.BackendEapi
	cfg.Eapi = &config.EapiConfig{Endpoint: "https://switch1/command-api"}

	store, err := buildStore(cfg)
	require.NoError(t, err)
	_, ok := store.(*acl.EapiStore)
	require.True(t, ok)
}
