package cmd

import (
	"boxdstats/internal/report"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var reportTop int

func init() {
	reportCmd.Flags().IntVar(&reportTop, "top", 0, "Length of the top lists, defaults to top_n from the config.")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report <username>",
	Short: "Prints statistics over the stored ratings of a user.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		s, err := current.store(cmd.Context())
		if err != nil {
			return err
		}
		tables, err := s.UserTables(cmd.Context(), username)
		if err != nil {
			return err
		}
		if len(tables.Films) == 0 {
			return fmt.Errorf("nothing stored for %q, run `boxdstats sync %s` first", username, username)
		}

		run, ok, err := s.LatestRun(cmd.Context())
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("last synced %s\n", time.Unix(run.FinishedAt, 0).In(current.clock.Location()).Format(time.DateTime))
		}

		top := reportTop
		if top <= 0 {
			top = current.cfg.TopN
		}
		report.Render(os.Stdout, username, report.Summarize(tables, top), current.cfg.BaseUrl)
		return nil
	},
}
