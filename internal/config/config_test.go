package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoad(t *testing.T) {
	t.Run("Reads values and fills defaults", func(t *testing.T) {
		// Given: a config file with a few keys set
		path := filepath.Join(t.TempDir(), "config.yml")
		content := `log-level: debug
redis:
  host: redis.local
oracle:
  enabled: true
  api-key: secret
  timeout: 3s
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		// When: loading it
		conf := MustLoad(path)

		// Then: file values win and the rest falls back to defaults
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "9090", conf.HTTPPort)
		assert.Equal(t, "8080", conf.SocketPort)
		assert.Equal(t, "redis.local:6379", conf.Redis.GetRedisAddr())
		assert.True(t, conf.Oracle.Enabled)
		assert.Equal(t, "secret", conf.Oracle.APIKey)
		assert.Equal(t, "gemini-2.5-flash", conf.Oracle.Model)
		assert.Equal(t, 3*time.Second, conf.Oracle.Timeout)
	})

	t.Run("Panics on a missing file", func(t *testing.T) {
		assert.Panics(t, func() {
			MustLoad(filepath.Join(t.TempDir(), "missing.yml"))
		})
	})
}
