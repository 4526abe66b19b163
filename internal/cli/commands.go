package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/dmitrijs2005/litepos/internal/app"
	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/eventbus"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/services"
	"github.com/spf13/cobra"
)

func NewOutboxCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "outbox",
		Short: "List undelivered outbox entries, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(ctx context.Context, a *app.App) error {
				entries, err := a.Outbox().Pending(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read outbox", err)
				}
				return printEntries(newOutput(cmd.OutOrStdout(), opts.JSON), entries)
			})
		},
	}
}

func printEntries(out *output, entries []models.OutboxEntry) error {
	if entries == nil {
		entries = []models.OutboxEntry{}
	}
	return out.print(entries, []string{"ID", "STORE", "OP", "METHOD", "URL", "TRIES", "CREATED"}, func(add func(...any)) {
		for _, e := range entries {
			add(e.ID, e.Store, e.Op, e.Method, e.RemoteURL, e.Tries, time.UnixMilli(e.CreatedAt).Format(time.RFC3339))
		}
	})
}

type JobsOptions struct {
	*RootOptions
	Status string
}

func NewJobsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JobsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List print jobs in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status := models.PrintStatus(opts.Status)
			switch status {
			case "", models.PrintQueued, models.PrintDone, models.PrintFailed:
			default:
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q: must be queued, done or failed", opts.Status))
			}

			return withApp(opts.RootOptions, func(ctx context.Context, a *app.App) error {
				jobs, err := a.Printer().Jobs(ctx, status)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read print jobs", err)
				}
				if jobs == nil {
					jobs = []models.PrintJob{}
				}
				return newOutput(cmd.OutOrStdout(), opts.JSON).print(jobs,
					[]string{"ID", "DEST", "STATUS", "PRIORITY", "TRIES", "CREATED"},
					func(add func(...any)) {
						for _, j := range jobs {
							add(j.ID, j.Dest, j.Status, j.Priority, j.Tries, time.UnixMilli(j.CreatedAt).Format(time.RFC3339))
						}
					})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "only jobs in this status (queued|done|failed)")
	return cmd
}

type syncReport struct {
	Online bool   `json:"online"`
	State  string `json:"state"`
	Error  string `json:"error,omitempty"`
}

func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push dirty orders and pull products and orders once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(ctx context.Context, a *app.App) error {
				online := a.Probe(ctx)
				syncErr := a.Sync().SyncAll(ctx)
				a.Outbox().Settle()
				state, msg := a.Sync().State()

				r := syncReport{Online: online, State: string(state), Error: msg}
				if err := newOutput(cmd.OutOrStdout(), opts.JSON).print(r, []string{"ONLINE", "STATE", "ERROR"}, func(add func(...any)) {
					add(r.Online, r.State, r.Error)
				}); err != nil {
					return err
				}
				if syncErr != nil {
					return WrapExitError(ExitFailure, "sync failed", syncErr)
				}
				return nil
			})
		},
	}
}

func NewFlushCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Deliver pending outbox entries and list what is left",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(ctx context.Context, a *app.App) error {
				if !a.Probe(ctx) {
					fmt.Fprintln(cmd.ErrOrStderr(), "remote API unreachable, nothing delivered")
				} else {
					if err := a.Outbox().FlushOutbox(ctx); err != nil {
						return WrapExitError(ExitFailure, "flush failed", err)
					}
					a.Outbox().Settle()
				}

				left, err := a.Outbox().Pending(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read outbox", err)
				}
				return printEntries(newOutput(cmd.OutOrStdout(), opts.JSON), left)
			})
		},
	}
}

type PrintTestOptions struct {
	*RootOptions
	Wait time.Duration
}

func NewPrintTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PrintTestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "print-test",
		Short: "Queue a demo receipt and wait for it to print",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, func(ctx context.Context, a *app.App) error {
				job, err := waitForPrint(ctx, a, opts.Wait)
				if err != nil {
					return WrapExitError(ExitFailure, "test print failed", err)
				}

				if err := newOutput(cmd.OutOrStdout(), opts.JSON).print(job, []string{"ID", "DEST", "STATUS", "TRIES"}, func(add func(...any)) {
					add(job.ID, job.Dest, job.Status, job.Tries)
				}); err != nil {
					return err
				}
				if job.Status == models.PrintFailed {
					return NewExitError(ExitFailure, "test print failed")
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&opts.Wait, "wait", 5*time.Second, "how long to wait for the job to finish")
	return cmd
}

// waitForPrint queues the demo receipt and returns the job once it is done
// or failed, or as queued when wait runs out.
func waitForPrint(ctx context.Context, a *app.App, wait time.Duration) (*models.PrintJob, error) {
	finished := make(chan models.PrintJob, 16)
	notify := func(ev eventbus.Event) {
		if p, ok := ev.Payload.(eventbus.PrintPayload); ok {
			select {
			case finished <- p.Job:
			default:
			}
		}
	}
	cancelDone := a.Bus().Subscribe(eventbus.KindPrintDone, notify)
	defer cancelDone()
	cancelFailed := a.Bus().Subscribe(eventbus.KindPrintFailed, notify)
	defer cancelFailed()

	job, err := a.Orders().TestPrint(ctx)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case j := <-finished:
			if j.ID == job.ID {
				return &j, nil
			}
		case <-timer.C:
			return job, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type SeedOptions struct {
	*RootOptions
	Count int
}

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty product catalog with demo items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, func(ctx context.Context, a *app.App) error {
				n, err := services.SeedCatalog(ctx, a.Store(), opts.Count, time.Now())
				if err != nil {
					return WrapExitError(ExitFailure, "seed failed", err)
				}
				r := struct {
					Written int `json:"written"`
				}{n}
				return newOutput(cmd.OutOrStdout(), opts.JSON).print(r, []string{"WRITTEN"}, func(add func(...any)) {
					add(n)
				})
			})
		},
	}

	cmd.Flags().IntVar(&opts.Count, "count", 1000, "number of demo products")
	return cmd
}

type CursorsOptions struct {
	*RootOptions
	Reset string
}

func NewCursorsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CursorsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cursors",
		Short: "Show the pull cursor of each collection, optionally resetting one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, func(ctx context.Context, a *app.App) error {
				if opts.Reset != "" {
					if err := a.Sync().ResetCursor(ctx, opts.Reset); err != nil {
						if errors.Is(err, common.ErrValidation) {
							return WrapExitError(ExitCommandError, "cannot reset cursor", err)
						}
						return WrapExitError(ExitFailure, "failed to reset cursor", err)
					}
				}

				cursors, err := a.Sync().Cursors(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read cursors", err)
				}
				return newOutput(cmd.OutOrStdout(), opts.JSON).print(cursors, []string{"COLLECTION", "SINCE"}, func(add func(...any)) {
					for _, c := range slices.Sorted(maps.Keys(cursors)) {
						since := "never"
						if ms := cursors[c]; ms > 0 {
							since = time.UnixMilli(ms).UTC().Format(time.RFC3339)
						}
						add(c, since)
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Reset, "reset", "", "forget the cursor of this collection so the next sync pulls it in full")
	return cmd
}
