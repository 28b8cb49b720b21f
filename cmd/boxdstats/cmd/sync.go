package cmd

import (
	"boxdstats/internal/pipeline"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync [username...]",
	Short: "Adds the films rated by the given users (or the configured ones) to the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		usernames := args
		if len(usernames) == 0 {
			usernames = current.cfg.Usernames
		}
		if len(usernames) == 0 {
			return errors.New("no usernames given and none configured")
		}

		syncer, s, err := current.syncer(cmd.Context())
		if err != nil {
			return err
		}
		report, err := runSync(cmd.Context(), syncer, usernames)
		if err != nil {
			return err
		}
		renderSyncReport(os.Stdout, report)

		total, err := s.FilmCount(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%d films in %s\n", total, current.cfg.Database)

		if len(report.Failed) == len(usernames) {
			return errors.New("no list could be fetched")
		}
		return nil
	},
}

func runSync(ctx context.Context, syncer pipeline.Syncer, usernames []string) (pipeline.SyncReport, error) {
	report, err := syncer.Sync(ctx, usernames...)
	if err != nil {
		return report, fmt.Errorf("sync: %w", err)
	}
	for _, failure := range report.Failed {
		slog.Error(describe(failure.Username, failure.Err))
	}
	return report, nil
}

func renderSyncReport(out io.Writer, report pipeline.SyncReport) {
	t := newTable(out)
	t.SetTitle(fmt.Sprintf("run %s", report.RunId))
	t.AppendRows([]table.Row{
		{"new films", len(report.NewIds)},
		{"already stored", report.Skipped},
		{"incomplete", len(report.Incomplete)},
		{"failed users", len(report.Failed)},
	})
	t.Render()
	renderIncomplete(out, report.Incomplete)
}
