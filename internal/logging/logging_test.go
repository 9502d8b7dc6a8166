package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewWithOutput(Config{Level: "info", Format: JSONFormat}, &buf)
		require.NoError(t, err)

		logger.WithField("key", "a").Info("stored")

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "stored", got["msg"])
		assert.Equal(t, "a", got["key"])
		assert.Equal(t, "info", got["level"])
	})

	t.Run("hide debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewWithOutput(Config{Level: "info"}, &buf)
		require.NoError(t, err)

		logger.Debug("should not see this")
		assert.Empty(t, buf.String())
	})

	t.Run("debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewWithOutput(Config{Level: "debug", Format: TextFormat}, &buf)
		require.NoError(t, err)

		logger.Debug("something")
		assert.Contains(t, buf.String(), "level=debug")
		assert.Contains(t, buf.String(), "msg=something")
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := New(Config{Level: "chatty"})
		assert.Error(t, err)
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := New(Config{Format: "xml"})
		assert.Error(t, err)
	})
}

func TestAddFlags(t *testing.T) {
	cfg := Config{Level: "warn", Format: JSONFormat}
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags, &cfg)

	require.NoError(t, flags.Parse([]string{"--log-level", "debug"}))

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, JSONFormat, cfg.Format)

	logger, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
}
