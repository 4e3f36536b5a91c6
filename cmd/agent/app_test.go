package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/gliderlab/planact/pkg/config"
)

func testConfig(t *testing.T) *pkgconfig.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := pkgconfig.Default()
	cfg.APIKey = "sk-test"
	cfg.MemoryDir = filepath.Join(dir, "memory")
	cfg.KVDir = ""
	return cfg
}

func TestBuildAppRegistersTools(t *testing.T) {
	a, err := buildApp(testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"get_representative_telephone", "googlesearch", "memory_updater"}, a.agent.Registry().List())
	require.NotNil(t, a.kv, "default cache ttl opens an in-memory store")
	require.NotNil(t, a.cache)
	assert.Zero(t, a.cache.Len())
}

func TestBuildAppHonorsPolicyAndDisabledCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tools.Deny = []string{"memory_updater"}
	cfg.Tools.CacheTTL = "0s"

	a, err := buildApp(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"get_representative_telephone", "googlesearch"}, a.agent.Registry().List())
	assert.Nil(t, a.kv)
	assert.Nil(t, a.cache)
}

func TestBuildAppRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider = "bedrock"

	_, err := buildApp(cfg)
	assert.Error(t, err)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", maskKey("short"))
	assert.Equal(t, "sk-a****wxyz", maskKey("sk-abcdefghijklmnopqrstuvwxyz"))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["chat"])
	assert.True(t, names["serve"])
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("env-config"))
}
