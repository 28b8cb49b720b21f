package cmd

import (
	"boxdstats/internal/dataset"
	"boxdstats/internal/pipeline"
	"boxdstats/internal/report"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var scrapeSummary bool

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeSummary, "summary", false, "Print the summary of the scraped films instead of the table sizes.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <username>",
	Short: "Scrapes every rated film of a user without touching the database.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		p, err := current.pipeline()
		if err != nil {
			return err
		}
		result, err := p.Scrape(cmd.Context(), username)
		if err != nil {
			return errors.New(describe(username, err))
		}

		if scrapeSummary {
			report.Render(os.Stdout, username, report.Summarize(result.Tables, current.cfg.TopN), current.cfg.BaseUrl)
		} else {
			renderTableSizes(os.Stdout, result.Tables)
		}
		renderIncomplete(os.Stdout, result.Incomplete)
		return nil
	},
}

func renderTableSizes(out io.Writer, tables dataset.Tables) {
	t := newTable(out)
	t.AppendHeader(table.Row{"table", "rows"})
	t.AppendRows([]table.Row{
		{"film", len(tables.Films)},
		{"film_detail", len(tables.Details)},
		{"actor", len(tables.Actors)},
		{"director", len(tables.Directors)},
		{"genre", len(tables.Genres)},
		{"theme", len(tables.Themes)},
		{"country", len(tables.Countries)},
		{"language", len(tables.Languages)},
	})
	t.Render()
}

func renderIncomplete(out io.Writer, incomplete []pipeline.Incomplete) {
	if len(incomplete) == 0 {
		return
	}
	t := newTable(out)
	t.SetTitle(fmt.Sprintf("%d films could not be fetched", len(incomplete)))
	t.AppendHeader(table.Row{"id", "title", "error"})
	for _, f := range incomplete {
		t.AppendRow(table.Row{f.Film.Id, f.Film.Title, f.Err})
	}
	t.Render()
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}
