package cmd

import (
	"boxdstats/internal/components/chrono"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var daemonNow bool

func init() {
	daemonCmd.Flags().BoolVar(&daemonNow, "now", false, "Sync once on start before waiting for the schedule.")
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Syncs the configured users on the configured cron schedule until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		usernames := current.cfg.Usernames
		if len(usernames) == 0 {
			return errors.New("the daemon needs `usernames` in the config")
		}

		syncer, _, err := current.syncer(ctx)
		if err != nil {
			return err
		}

		sync := func() {
			report, err := runSync(ctx, syncer, usernames)
			if err != nil {
				slog.Error("scheduled sync failed", "err", err)
				return
			}
			slog.Info(
				"scheduled sync done",
				"run", report.RunId,
				"new", len(report.NewIds),
				"skipped", report.Skipped,
				"incomplete", len(report.Incomplete),
				"failed", len(report.Failed),
			)
		}

		if daemonNow {
			sync()
		}

		cron := chrono.NewStandardCron(current.clock, current.tel)
		defer cron.Stop()
		err = cron.Cron(current.cfg.Cron, sync)
		if err != nil {
			return fmt.Errorf("schedule %q: %w", current.cfg.Cron, err)
		}

		slog.Info("waiting for schedule", "cron", current.cfg.Cron, "usernames", usernames)
		<-ctx.Done()
		return nil
	},
}
