package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tabula/internal/api"
	"github.com/shaiso/Tabula/internal/domain"
	"github.com/shaiso/Tabula/internal/scheduler"
)

// NewWatchCmd создаёт команду watch: полный цикл по cron-расписанию.
// Файлы перечитываются на каждом запуске.
func NewWatchCmd(envFn func() (*Env, error)) *cobra.Command {
	var (
		opts   analyzeOpts
		expr   string
		tz     string
		count  int
		listen string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Repeat the analysis cycle on a cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := scheduler.ParseSchedule(expr, tz)
			if err != nil {
				return err
			}
			paths, err := opts.paths()
			if err != nil {
				return err
			}
			if paths[domain.RolePrimary] == "-" || paths[domain.RoleAdjacency] == "-" {
				return fmt.Errorf("watch cannot read inputs from stdin")
			}
			next, err := scheduler.NextRun(expr, tz, time.Now())
			if err != nil {
				return err
			}

			env, err := envFn()
			if err != nil {
				return err
			}
			defer env.PushMetrics("watch")

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			integ := env.OpenIntegrations(ctx)
			defer integ.Close()

			orch := env.Orchestrator(false, integ.Observers()...)

			if listen != "" {
				serverDone := make(chan struct{})
				handler := api.NewHandler(orch, env.Registry, env.Logger).Routes()
				go func() {
					defer close(serverDone)
					if err := api.Serve(ctx, listen, handler, env.Logger); err != nil {
						env.Logger.Error("status server failed", "error", err)
					}
				}()
				defer func() {
					cancel()
					<-serverDone
				}()
			}

			watcher := scheduler.New(scheduler.Config{
				Schedule: schedule,
				MaxRuns:  count,
				Logger:   env.Logger,
				Job: func(ctx context.Context) error {
					orch.Reset()
					return runCycle(ctx, env, integ, orch, &opts)
				},
			})

			env.Logger.Info("watching", "cron", expr, "tz", tz, "next_run", next, "max_runs", count)
			env.Out.Success(fmt.Sprintf("Next run at %s", next.Format(time.RFC3339)))
			stats, err := watcher.Run(ctx)
			if err != nil && ctx.Err() == nil {
				return err
			}
			env.Out.Success(fmt.Sprintf("%d runs, %d failed", stats.Runs, stats.Failures))
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&expr, "cron", "", "Cron expression (5 fields or @every/@hourly descriptors)")
	cmd.Flags().StringVar(&tz, "tz", "", "IANA time zone for the cron expression")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after N runs (0 = until interrupted)")
	cmd.Flags().StringVar(&listen, "listen", "", "Serve /healthz, /metrics and /session on this address (e.g. :8090)")
	cmd.MarkFlagRequired("cron")

	return cmd
}
