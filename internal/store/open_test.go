package store

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/heysubinoy/kvweb/internal/logging"
	"github.com/heysubinoy/kvweb/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := logging.Discard()

	t.Run("memory", func(t *testing.T) {
		s, err := Open(ctx, &config.Config{Backend: config.BackendMemory}, logger)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &MemStore{}, s)
	})

	t.Run("bolt", func(t *testing.T) {
		cfg := &config.Config{Backend: config.BackendBolt}
		cfg.Bolt.Path = filepath.Join(t.TempDir(), "kvweb.db")
		s, err := Open(ctx, cfg, logger)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &BoltStore{}, s)
	})

	t.Run("redis", func(t *testing.T) {
		m := miniredis.RunT(t)
		host, port := splitHostPort(t, m.Addr())
		cfg := &config.Config{Backend: config.BackendRedis}
		cfg.Redis.Host, cfg.Redis.Port = host, port

		s, err := Open(ctx, cfg, logger)
		require.NoError(t, err)
		defer s.Close()

		require.NoError(t, s.Set(ctx, "a", "1"))
		got, err := m.Get("a")
		require.NoError(t, err)
		assert.Equal(t, "1", got)
	})

	t.Run("redis down still opens", func(t *testing.T) {
		m := miniredis.RunT(t)
		host, port := splitHostPort(t, m.Addr())
		m.Close()
		cfg := &config.Config{Backend: config.BackendRedis}
		cfg.Redis.Host, cfg.Redis.Port = host, port

		s, err := Open(ctx, cfg, logger)
		require.NoError(t, err)
		defer s.Close()

		_, err = s.Keys(ctx)
		assert.Error(t, err)
	})

	t.Run("raft", func(t *testing.T) {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := lis.Addr().String()
		require.NoError(t, lis.Close())

		cfg := &config.Config{Backend: config.BackendRaft}
		cfg.Raft = config.RaftConfig{NodeID: "n1", Addr: addr, Data: t.TempDir(), Leader: true}

		s, err := Open(ctx, cfg, logger)
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, s.Close())
		}()

		require.NoError(t, s.Set(ctx, "a", "1"))
		value, found, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "1", value)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(ctx, &config.Config{Backend: "etcd"}, logger)
		assert.Error(t, err)
	})
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := net.LookupPort("tcp", portStr)
	require.NoError(t, err)
	return host, port
}
