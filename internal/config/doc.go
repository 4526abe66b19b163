// Package config loads runtime configuration for the litepos daemon.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-d string   path of the local SQLite database
//	-r string   remote API base URL
//	-l string   listen address of the local API
//	-i int      online status check interval (seconds)
//	-s int      sync interval (seconds)
//	-p string   print spool directory
//	-v string   log level
//
// # File schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or integer
// nanoseconds:
//
//	{
//	  "database_path": "litepos.db",
//	  "remote_base_url": "http://127.0.0.1:8080/api",
//	  "listen_addr": "127.0.0.1:8090",
//	  "online_check_interval": "3s",
//	  "sync_interval": "1m",
//	  "print_spool_dir": "spool",
//	  "log_level": "info"
//	}
//
// Fields absent from the file keep their previous value.
package config
