package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds runtime settings for the litepos daemon.
//
// Fields:
//   - DatabasePath: SQLite file holding the local collections.
//   - RemoteBaseURL: base of the remote API; relative outbox URLs resolve against it.
//   - ListenAddr: host:port of the local API used by the UI.
//   - OnlineCheckInterval: how often the remote health endpoint is probed.
//   - SyncInterval: how often a full sync runs while online.
//   - PrintSpoolDir: directory receiving rendered print jobs; empty means stdout.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	DatabasePath        string
	RemoteBaseURL       string
	ListenAddr          string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	PrintSpoolDir       string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "litepos.db"
	c.RemoteBaseURL = "http://127.0.0.1:8080/api"
	c.ListenAddr = "127.0.0.1:8090"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = time.Minute
	c.PrintSpoolDir = ""
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if given) and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

// LoadArgs is LoadConfig over an explicit argument list.
func LoadArgs(args []string) *Config {
	return load(args)
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg, args)
	parseFlags(cfg, args)
	if cfg.OnlineCheckInterval <= 0 || cfg.SyncInterval <= 0 {
		panic(fmt.Sprintf("intervals must be positive, got online check %s and sync %s", cfg.OnlineCheckInterval, cfg.SyncInterval))
	}
	return cfg
}
