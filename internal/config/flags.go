package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/litepos/internal/flagx"
)

// parseFlags populates Config fields from command-line flags, see the package
// documentation for the list. It panics on malformed values.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-d", "-r", "-l", "-i", "-s", "-p", "-v"})

	fs := flag.NewFlagSet("litepos", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database")
	fs.StringVar(&cfg.RemoteBaseURL, "r", cfg.RemoteBaseURL, "remote API base URL")
	fs.StringVar(&cfg.ListenAddr, "l", cfg.ListenAddr, "listen address of the local API")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	syncInterval := fs.Int("s", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	fs.StringVar(&cfg.PrintSpoolDir, "p", cfg.PrintSpoolDir, "print spool directory")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Intervals are only overridden when given, so sub-second values from a
	// config file survive the integer flag defaults.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.OnlineCheckInterval = positiveSeconds(f.Name, *onlineCheckInterval)
		case "s":
			cfg.SyncInterval = positiveSeconds(f.Name, *syncInterval)
		}
	})
}

func positiveSeconds(name string, n int) time.Duration {
	if n <= 0 {
		panic(fmt.Sprintf("flag -%s: interval must be positive, got %d", name, n))
	}
	return time.Duration(n) * time.Second
}
