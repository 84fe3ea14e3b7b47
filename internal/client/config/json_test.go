package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"api_base_url":         "http://www.example:9000/api",
		"logout_poll_interval": "10s",
		"requests_per_second":  0,
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{PageSize: 8, RequestsPerSecond: 5, LogLevel: "warn"}
		parseJson(cfg)

		assert.Equal(t, "http://www.example:9000/api", cfg.APIBaseURL)
		assert.Equal(t, 10*time.Second, cfg.LogoutPollInterval)
		assert.Zero(t, cfg.RequestsPerSecond)
		// absent keys keep their values
		assert.Equal(t, 8, cfg.PageSize)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("short flag, nanosecond interval", func(t *testing.T) {
		p := writeTempJSON(t, dir, "ns.json", map[string]any{"logout_poll_interval": 250000000})
		os.Args = []string{"testbin", "-c", p}

		cfg := &Config{}
		parseJson(cfg)
		assert.Equal(t, 250*time.Millisecond, cfg.LogoutPollInterval)
	})

	t.Run("no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			APIBaseURL:         "http://defaults:1234",
			LogoutPollInterval: 42 * time.Second,
		}
		parseJson(cfg)

		assert.Equal(t, "http://defaults:1234", cfg.APIBaseURL)
		assert.Equal(t, 42*time.Second, cfg.LogoutPollInterval)
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
