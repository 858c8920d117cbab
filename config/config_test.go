package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432")
	t.Setenv("DATABASE_NAME", "tumulte")
	t.Setenv("TWITCH_CLIENT_ID", "client")
	t.Setenv("TWITCH_CLIENT_SECRET", "secret")
	t.Setenv("NATS_SERVERS", "nats://a:4222, nats://b:4222,")

	cfg, err := load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres://u:p@db:5432/tumulte?sslmode=disable", cfg.GetDatabaseURL())
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.NATSServerList())
	assert.Equal(t, 10*time.Second, cfg.ExpireSweepInterval)
	assert.Equal(t, time.Minute, cfg.OrphanSweepInterval)
	assert.Equal(t, "https://api.twitch.tv/helix", cfg.TwitchAPIBaseURL)
	assert.Equal(t, int32(10), cfg.DatabaseMaxConns)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing database",
			env:     map[string]string{"TWITCH_CLIENT_ID": "c", "TWITCH_CLIENT_SECRET": "s"},
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "missing twitch client",
			env:     map[string]string{"DATABASE_URL": "postgres://db"},
			wantErr: "TWITCH_CLIENT_ID is required",
		},
		{
			name: "bad exporter",
			env: map[string]string{
				"DATABASE_URL": "postgres://db", "TWITCH_CLIENT_ID": "c", "TWITCH_CLIENT_SECRET": "s",
				"METRICS_EXPORTER": "prometheus",
			},
			wantErr: "unknown METRICS_EXPORTER",
		},
		{
			name: "bad duration",
			env: map[string]string{
				"DATABASE_URL": "postgres://db", "TWITCH_CLIENT_ID": "c", "TWITCH_CLIENT_SECRET": "s",
				"EXPIRE_SWEEP_INTERVAL": "often",
			},
			wantErr: "parse env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "development")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetTestConfig(t *testing.T) {
	t.Cleanup(ResetConfig)

	cfg := NewTestConfig()
	cfg.HTTPAddr = ":9999"
	SetTestConfig(cfg)

	assert.Same(t, cfg, Get())
	assert.Equal(t, ":9999", Get().HTTPAddr)
}
