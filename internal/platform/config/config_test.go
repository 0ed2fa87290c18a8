package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VOLID_ENV", "development")
	t.Setenv("JWT_SIGNING_KEY", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "VOL", cfg.Identifier.Prefix)
	assert.Equal(t, 64, cfg.Identifier.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Credential.RenderTimeout)
	assert.Equal(t, 60*time.Second, cfg.Redis.VerifyTTL)
	assert.NotEmpty(t, cfg.JWTSigningKey)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 60, cfg.RateLimit.VerifyPerMinute)
	assert.Empty(t, cfg.Credential.PhotoHosts)
	assert.Equal(t, 5*time.Second, cfg.Notification.DrainWindow)
	assert.Equal(t, 5, cfg.Audit.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.Audit.BreakerCooldown)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VOLID_ID_PREFIX", "hope")
	t.Setenv("VOLID_RENDER_TIMEOUT", "15s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("JWT_SIGNING_KEY", "a-long-enough-signing-key")
	t.Setenv("VOLID_PHOTO_HOSTS", "files.example.org,cdn.example.net")
	t.Setenv("VOLID_NOTIFY_DRAIN_WINDOW", "2s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"files.example.org", "cdn.example.net"}, cfg.Credential.PhotoHosts)
	assert.Equal(t, 2*time.Second, cfg.Notification.DrainWindow)
	assert.Equal(t, "HOPE", cfg.Identifier.Prefix)
	assert.Equal(t, 15*time.Second, cfg.Credential.RenderTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"prefix with digits":        {"VOLID_ID_PREFIX": "V0L"},
		"negative verify limit":     {"VOLID_VERIFY_RATE_LIMIT": "-1"},
		"prefix too long":           {"VOLID_ID_PREFIX": "VOLUNTEER"},
		"non-http base url":         {"PUBLIC_BASE_URL": "ftp://example.org"},
		"short signing key":         {"JWT_SIGNING_KEY": "short"},
		"production without db":     {"VOLID_ENV": "production", "JWT_SIGNING_KEY": "a-long-enough-signing-key"},
		"unknown log level":         {"VOLID_LOG_LEVEL": "verbose"},
		"render concurrency zero":   {"VOLID_RENDER_CONCURRENCY": "0"},
		"photo host with path":      {"VOLID_PHOTO_HOSTS": "files.example.org/photos"},
		"zero breaker threshold":    {"VOLID_AUDIT_BREAKER_THRESHOLD": "0"},
		"production without secret": {"VOLID_ENV": "production", "DATABASE_URL": "postgres://x", "JWT_SIGNING_KEY": ""},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
