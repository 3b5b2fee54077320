package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("PORT", "")
	require.NoError(t, os.Unsetenv("PORT"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8083", cfg.Server.Port)
	assert.Equal(t, DriverLocal, cfg.Realtime.Driver)
	assert.Equal(t, 30*time.Second, cfg.Realtime.BreakerTimeout)
	assert.Equal(t, uint32(5), cfg.Realtime.BreakerThreshold)
	assert.Equal(t, "audit.marketplace-chat", cfg.AMQP.AuditRoutingKey)
	assert.Equal(t, 30, cfg.Server.MessageRateLimit)
	assert.Equal(t, time.Minute, cfg.Server.MessageRateWindow)
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
logging:
  level: debug
realtime:
  driver: nats
  nats_url: nats://file:4222
`), 0o600))

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PORT", "9100")
	t.Setenv("REALTIME_BREAKER_TIMEOUT", "2s")
	t.Setenv("DEBUG_ROUTES", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, DriverNATS, cfg.Realtime.Driver)
	assert.Equal(t, "nats://file:4222", cfg.Realtime.NATSURL)
	assert.Equal(t, 2*time.Second, cfg.Realtime.BreakerTimeout)
	assert.True(t, cfg.Debug.Routes)
}

func TestEnvTransformIgnoresUnknownKeys(t *testing.T) {
	assert.Equal(t, "database.dsn", envTransformFunc("DB_DSN"))
	assert.Equal(t, "", envTransformFunc("HOME"))
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Realtime.Driver = "carrier-pigeon"
	assert.ErrorContains(t, cfg.Validate(), "unknown realtime.driver")

	cfg = defaultConfig()
	cfg.Realtime.Driver = DriverAMQP
	assert.ErrorContains(t, cfg.Validate(), "requires amqp.url")

	cfg = defaultConfig()
	cfg.Environment = "production"
	assert.ErrorContains(t, cfg.Validate(), "must be changed in production")

	cfg = defaultConfig()
	cfg.Tracing.SampleRatio = 2
	assert.ErrorContains(t, cfg.Validate(), "sample_ratio")

	cfg = defaultConfig()
	cfg.Server.MessageRateWindow = 0
	assert.ErrorContains(t, cfg.Validate(), "message_rate_window")

	cfg.Server.MessageRateLimit = 0
	assert.NoError(t, cfg.Validate())
}
