package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, "", cfg.GRPCAddr)
	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.RequestLogging)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("GRPC_ADDR", ":9090")
	t.Setenv("REQUEST_LOGGING", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", cfg.Redis.Addr())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.GRPCAddr)
	assert.True(t, cfg.RequestLogging)
}

func TestLoadConfig_FileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kvweb.yaml")
	err := os.WriteFile(path, []byte(`
http_addr: ":7000"
backend: bolt
bolt:
  path: /var/lib/kvweb/data.db
redis:
  host: redis-a
  port: 7001
log:
  format: json
`), 0o600)
	require.NoError(t, err)

	t.Setenv("REDIS_HOST", "redis-b")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, BackendBolt, cfg.Backend)
	assert.Equal(t, "/var/lib/kvweb/data.db", cfg.Bolt.Path)
	assert.Equal(t, "redis-b:7001", cfg.Redis.Addr())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		path string
	}{
		{"missing file", nil, filepath.Join(t.TempDir(), "nope.yaml")},
		{"non-numeric port", map[string]string{"REDIS_PORT": "sixtythree"}, ""},
		{"port out of range", map[string]string{"REDIS_PORT": "70000"}, ""},
		{"bad bool", map[string]string{"REQUEST_LOGGING": "sometimes"}, ""},
		{"unknown backend", map[string]string{"STORE_BACKEND": "etcd"}, ""},
		{"raft without node id", map[string]string{"STORE_BACKEND": "raft", "RAFT_ADDR": "127.0.0.1:7946"}, ""},
		{"raft without addr", map[string]string{"STORE_BACKEND": "raft", "NODE_ID": "n1"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_RaftDataDefault(t *testing.T) {
	t.Setenv("STORE_BACKEND", "raft")
	t.Setenv("NODE_ID", "n1")
	t.Setenv("RAFT_ADDR", "127.0.0.1:7946")
	t.Setenv("RAFT_LEADER", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "./kvweb-raft/n1", cfg.Raft.Data)
	assert.True(t, cfg.Raft.Leader)
}
