// Package cli implements posctl, the admin command line for a litepos
// database: inspecting the outbox and print queue, and forcing a sync, a
// flush or a test print.
package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/litepos/internal/app"
	"github.com/dmitrijs2005/litepos/internal/config"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands. They use the same short
// names as the posd flags and the same config file.
type RootOptions struct {
	ConfigPath string
	Database   string
	Remote     string
	SpoolDir   string
	LogLevel   string
	JSON       bool
}

// NewRootCommand creates the root command of posctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "posctl",
		Short: "Inspect and drive a litepos database",
		Long: `posctl works on the local litepos database directly.

It reads the same config file and flags as posd, so both can be pointed at
the same database. posd may keep running while posctl is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (JSON or YAML)")
	pf.StringVarP(&opts.Database, "db", "d", "", "path of the local database")
	pf.StringVarP(&opts.Remote, "remote", "r", "", "remote API base URL")
	pf.StringVarP(&opts.SpoolDir, "spool", "p", "", "print spool directory")
	pf.StringVarP(&opts.LogLevel, "log-level", "v", "", "log level")
	pf.BoolVar(&opts.JSON, "json", false, "always print JSON")

	cmd.AddCommand(NewOutboxCommand(opts))
	cmd.AddCommand(NewJobsCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewCursorsCommand(opts))
	cmd.AddCommand(NewFlushCommand(opts))
	cmd.AddCommand(NewPrintTestCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

// configArgs turns the global flags into the argument form understood by
// the config package.
func (o *RootOptions) configArgs() []string {
	var args []string
	add := func(flag, value string) {
		if value != "" {
			args = append(args, flag, value)
		}
	}
	add("-c", o.ConfigPath)
	add("-d", o.Database)
	add("-r", o.Remote)
	add("-p", o.SpoolDir)
	add("-v", o.LogLevel)
	return args
}

func (o *RootOptions) loadConfig() (cfg *config.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return config.LoadArgs(o.configArgs()), nil
}

// withApp opens the database, runs fn and closes everything again.
func withApp(o *RootOptions, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	a, err := app.NewApp(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}

	runErr := fn(context.Background(), a)
	if err := a.Close(); err != nil && runErr == nil {
		runErr = WrapExitError(ExitFailure, "failed to close database", err)
	}
	return runErr
}
