package api_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	shared "github.com/NordCoder/safecode-crm/internal/config/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("REALTIME_BACKEND", "redis")
	t.Setenv("SERVER_HTTP_ADDR", ":9999")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.App.Name)
	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, shared.BackendRedis, cfg.Realtime.Backend)
	assert.Equal(t, "crm:notifications:", cfg.Realtime.Redis.ChannelPrefix)
	assert.Equal(t, "crm.email.requested", cfg.Kafka.Topic)
	assert.Equal(t, 2*time.Second, cfg.DB.QueryTimeout)
}

func TestLoad_RequiresSecret(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "x")
	t.Setenv("REALTIME_BACKEND", "carrier-pigeon")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  jwt_secret: from-file
realtime:
  buffer: 8
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 8, cfg.Realtime.Buffer)
}
