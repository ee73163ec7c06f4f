package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REPORTING_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "reporting.db", cfg.DB.Path)
	assert.Equal(t, 10*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, time.Hour, cfg.Auth.SweepInterval)
	assert.Equal(t, int64(1), cfg.IDs.NodeID)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoad_FileThenEnv(t *testing.T) {
	// GIVEN: a YAML file and an env override of one of its values
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  cors_origins: ["https://dashboard.example.com"]
db:
  path: /var/lib/reporting.db
log:
  level: debug
  format: json
auth:
  token_ttl: 2h
`), 0o600))

	t.Setenv("REPORTING_ENV", "test")
	t.Setenv("REPORTING_CONFIG_PATH", path)
	t.Setenv("REPORTING_SERVER_PORT", "9100")
	t.Setenv("REPORTING_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	// WHEN: loading
	cfg, err := Load()

	// THEN: env wins over the file, the file wins over defaults
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "/var/lib/reporting.db", cfg.DB.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port not a number", "REPORTING_SERVER_PORT", "http"},
		{"port out of range", "REPORTING_SERVER_PORT", "70000"},
		{"bad ttl", "REPORTING_TOKEN_TTL", "ten hours"},
		{"node id out of range", "REPORTING_NODE_ID", "2048"},
		{"unknown log format", "REPORTING_LOG_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("REPORTING_ENV", "test")
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
