package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"-d", "/var/pos.db", "-r", "http://remote/api", "-l", ":9000", "-i", "10", "-s", "30", "-p", "/tmp/spool", "-v", "debug"},
			expected: &Config{
				DatabasePath:        "/var/pos.db",
				RemoteBaseURL:       "http://remote/api",
				ListenAddr:          ":9000",
				OnlineCheckInterval: 10 * time.Second,
				SyncInterval:        30 * time.Second,
				PrintSpoolDir:       "/tmp/spool",
				LogLevel:            "debug",
			},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"-c", "pos.json", "-x", "1", "-i", "7"},
			expected: &Config{OnlineCheckInterval: 7 * time.Second},
		},
		{name: "incorrect check interval", args: []string{"-i", "abc"}, expectPanic: true},
		{name: "zero check interval", args: []string{"-i", "0"}, expectPanic: true},
		{name: "zero sync interval", args: []string{"-s", "0"}, expectPanic: true},
		{name: "negative sync interval", args: []string{"-s", "-5"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg, tt.args) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg, tt.args) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}

func TestParseFlags_UnsetIntervalsKeepSubSecondValues(t *testing.T) {
	cfg := &Config{OnlineCheckInterval: 1500 * time.Millisecond, SyncInterval: 250 * time.Millisecond}

	parseFlags(cfg, []string{"-d", "x.db"})

	assert.Equal(t, 1500*time.Millisecond, cfg.OnlineCheckInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.SyncInterval)
	assert.Equal(t, "x.db", cfg.DatabasePath)
}
