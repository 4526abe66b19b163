package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/litepos/internal/flagx"
	"github.com/dmitrijs2005/litepos/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for file unmarshalling. Pointer fields
// distinguish "absent" from "zero" so a partial file only overrides what it
// names.
type FileConfig struct {
	DatabasePath        *string         `json:"database_path" yaml:"database_path"`
	RemoteBaseURL       *string         `json:"remote_base_url" yaml:"remote_base_url"`
	ListenAddr          *string         `json:"listen_addr" yaml:"listen_addr"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	SyncInterval        *timex.Duration `json:"sync_interval" yaml:"sync_interval"`
	PrintSpoolDir       *string         `json:"print_spool_dir" yaml:"print_spool_dir"`
	LogLevel            *string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays cfg with values from the file named by -c / -config.
// It panics on read or decode errors.
func parseFile(cfg *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(cfg)
}

func (fc *FileConfig) apply(cfg *Config) {
	if fc.DatabasePath != nil {
		cfg.DatabasePath = *fc.DatabasePath
	}
	if fc.RemoteBaseURL != nil {
		cfg.RemoteBaseURL = *fc.RemoteBaseURL
	}
	if fc.ListenAddr != nil {
		cfg.ListenAddr = *fc.ListenAddr
	}
	if fc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.SyncInterval != nil {
		cfg.SyncInterval = fc.SyncInterval.Duration
	}
	if fc.PrintSpoolDir != nil {
		cfg.PrintSpoolDir = *fc.PrintSpoolDir
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
}
