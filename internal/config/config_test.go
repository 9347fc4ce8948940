package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 4096, cfg.Arweave.KeyBits)
	assert.Equal(t, 24, cfg.Token.ExpiryHours)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, filepath.Join(cfg.DataDir, "usher.db"), cfg.SQLitePath())
}

func TestLoad_FileWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "hunter2")

	path := writeConfig(t, `
data_dir: /var/lib/usher
store:
  backend: redis
  redis:
    addr: localhost:6379
    password: ${TEST_REDIS_PASSWORD}
    prefix: "usher:"
arweave:
  key_bits: 2048
token:
  issuer: usher-test
  expiry_hours: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/usher", cfg.DataDir)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "hunter2", cfg.Store.Redis.Password)
	assert.Equal(t, "usher:", cfg.Store.Redis.Prefix)
	assert.Equal(t, 2048, cfg.Arweave.KeyBits)
	assert.Equal(t, "usher-test", cfg.Token.Issuer)
	assert.Equal(t, 2, cfg.Token.ExpiryHours)
	assert.Equal(t, ":8080", cfg.Server.Addr, "unset fields keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: memory
server:
  addr: ":9000"
`)
	t.Setenv("USHER_STORE_BACKEND", "sqlite")
	t.Setenv("USHER_STORE_SQLITE_PATH", "/tmp/usher.db")
	t.Setenv("USHER_SERVER_ADDR", ":7000")
	t.Setenv("USHER_ETHEREUM_RPC_URL", "http://localhost:8545")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/usher.db", cfg.SQLitePath())
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:8545", cfg.Ethereum.RPCURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown backend":    "store:\n  backend: postgres\n",
		"redis without addr": "store:\n  backend: redis\n",
		"small rsa keys":     "arweave:\n  key_bits: 1024\n",
		"not yaml":           "store: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("USHER_TEST_VALUE", "abc")

	assert.Equal(t, "x-abc-y", expandEnvVars("x-${USHER_TEST_VALUE}-y"))
	assert.Equal(t, "x--y", expandEnvVars("x-${USHER_TEST_UNSET_VALUE}-y"))
}
