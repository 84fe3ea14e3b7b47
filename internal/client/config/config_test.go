package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "https://api.escuelajs.co/api/v1", c.APIBaseURL)
	assert.Equal(t, "storeadmin.db", filepath.Base(c.StoragePath))
	assert.Equal(t, 2*time.Second, c.LogoutPollInterval)
	assert.Equal(t, 8, c.PageSize)
	assert.InDelta(t, 5.0, c.RequestsPerSecond, 0)
	assert.Equal(t, "warn", c.LogLevel)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"api_base_url":         "http://json.example/api",
		"storage_path":         "/tmp/json.db",
		"logout_poll_interval": "500ms",
		"page_size":            12,
	})

	t.Setenv("STOREADMIN_PAGE_SIZE", "20")
	t.Setenv("STOREADMIN_LOG_LEVEL", "debug")
	os.Args = []string{"storeadmin", "-c", path, "-a", "http://flag.example/api", "-r", "0"}

	cfg := LoadConfig()

	want := &Config{
		APIBaseURL:         "http://flag.example/api",
		StoragePath:        "/tmp/json.db",
		LogoutPollInterval: 500 * time.Millisecond,
		RequestsPerSecond:  0,
		PageSize:           20,
		LogLevel:           "debug",
	}
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestParseEnv(t *testing.T) {
	t.Setenv("STOREADMIN_STORAGE_PATH", "")
	t.Setenv("STOREADMIN_LOG_LEVEL", "error")
	t.Setenv("STOREADMIN_LOGOUT_POLL_INTERVAL", "3s")
	t.Setenv("STOREADMIN_REQUESTS_PER_SECOND", "1.5")

	cfg := &Config{StoragePath: "/keep/me.db", PageSize: 8}
	parseEnv(cfg)

	assert.Equal(t, "/keep/me.db", cfg.StoragePath, "empty variables are ignored")
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.LogoutPollInterval)
	assert.InDelta(t, 1.5, cfg.RequestsPerSecond, 1e-9)
	assert.Equal(t, 8, cfg.PageSize)
}

func TestParseEnv_Malformed(t *testing.T) {
	t.Setenv("STOREADMIN_PAGE_SIZE", "many")
	require.Panics(t, func() { parseEnv(&Config{}) })
}

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "http://h/api", "-s", "/tmp/x.db", "-i", "10", "-r", "2.5", "-p", "4", "-l", "info"},
			expected: &Config{
				APIBaseURL: "http://h/api", StoragePath: "/tmp/x.db", LogoutPollInterval: 10 * time.Second,
				RequestsPerSecond: 2.5, PageSize: 4, LogLevel: "info",
			},
		},
		{
			name:     "foreign flags ignored, interval kept",
			args:     []string{"cmd", "-config", "x.json", "-p", "6"},
			expected: &Config{LogoutPollInterval: 1500 * time.Millisecond, PageSize: 6},
		},
		{name: "incorrect page size", args: []string{"cmd", "-p", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{LogoutPollInterval: 1500 * time.Millisecond}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(tt.expected, config))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
