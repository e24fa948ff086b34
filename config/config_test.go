package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "api:\n  server_url: http://api.local/api\n")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "http://api.local/api", cfg.API.ServerURL)
	assert.Equal(t, "http://localhost:5002/api", cfg.API.FlightURL)
	assert.Equal(t, TransportSocketIO, cfg.Realtime.Transport)
	assert.Equal(t, 2*time.Second, cfg.Reconcile.Interval())
	assert.Equal(t, 5, cfg.Realtime.MaxReconnectAttempts)
	assert.Equal(t, SessionStoreFile, cfg.Session.Store)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("AIRDASH_REALTIME_URL", "http://rt.local:9000")
	t.Setenv("AIRDASH_RECONCILE_INTERVAL_MS", "500")
	t.Setenv("AIRDASH_KAFKA_BROKERS", "k1:9092,k2:9092")
	path := writeConfig(t, "realtime:\n  url: http://ignored\n")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "http://rt.local:9000", cfg.Realtime.URL)
	assert.Equal(t, 500*time.Millisecond, cfg.Reconcile.Interval())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"unknown transport", "realtime:\n  transport: carrier-pigeon\n"},
		{"kafka without brokers", "realtime:\n  transport: kafka\n"},
		{"unknown session store", "session:\n  store: floppy\n"},
		{"broken yaml", "api: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}
