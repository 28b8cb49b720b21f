package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(out io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	t.SetTitle(title)
	return t
}

func film(stat FilmStat) string {
	if stat.Link == "" {
		return stat.Title
	}
	return fmt.Sprintf("%s (%s)", stat.Title, stat.Link)
}

// Render writes the summary as plain tables, baseUrl is prepended to relative links.
func Render(out io.Writer, username string, s Summary, baseUrl string) {
	withBase := func(stat FilmStat) FilmStat {
		if stat.Link != "" {
			stat.Link = strings.TrimSuffix(baseUrl, "/") + stat.Link
		}
		return stat
	}

	o := s.Overview
	overview := newTable(out, fmt.Sprintf("%s: overview", username))
	overview.AppendRows([]table.Row{
		{"films rated", o.Films},
		{"films liked", o.Liked},
		{"mean rating", fmt.Sprintf("%.2f", o.MeanRating)},
		{"mean community rating", fmt.Sprintf("%.2f", o.MeanAvgRating)},
		{"mean difference to community", fmt.Sprintf("%+.2f", o.MeanDifference)},
		{"mean release year", fmt.Sprintf("%.0f", o.MeanYear)},
	})
	if o.MeanRuntime.Valid {
		overview.AppendRow(table.Row{"mean runtime", fmt.Sprintf("%.0f mins", o.MeanRuntime.V)})
	}
	if o.BiggestDifference.Valid {
		stat := withBase(o.BiggestDifference.V)
		overview.AppendRow(table.Row{"biggest disagreement", fmt.Sprintf("%s, %+.2f", film(stat), stat.Value)})
	}
	if o.MostObscure.Valid {
		stat := withBase(o.MostObscure.V)
		overview.AppendRow(table.Row{"most obscure", fmt.Sprintf("%s, watched by %.0f", film(stat), stat.Value)})
	}
	if o.MostPopular.Valid {
		stat := withBase(o.MostPopular.V)
		overview.AppendRow(table.Row{"most popular", fmt.Sprintf("%s, watched by %.0f", film(stat), stat.Value)})
	}
	overview.Render()

	renderBuckets(out, "ratings", s.Ratings)
	renderBuckets(out, "decades", s.Decades)
	renderBuckets(out, "runtime", s.Runtimes)
	renderBuckets(out, "popularity", s.Popularity)
	renderBuckets(out, "likeability", s.Likeability)

	renderRanked(out, "top directors", s.Directors, baseUrl)
	renderRanked(out, "top actors", s.Actors, baseUrl)
	renderRanked(out, "top genres", s.Genres, baseUrl)
	renderRanked(out, "top themes", s.Themes, baseUrl)
	renderRanked(out, "top countries", s.Countries, baseUrl)
	renderRanked(out, "top languages", s.Languages, baseUrl)
}

func renderBuckets(out io.Writer, title string, buckets []Bucket) {
	if len(buckets) == 0 {
		return
	}
	t := newTable(out, title)
	t.AppendHeader(table.Row{"", "films", "liked", "mean rating"})
	for _, b := range buckets {
		mean := "-"
		if b.Count > 0 {
			mean = fmt.Sprintf("%.2f", b.MeanRating)
		}
		t.AppendRow(table.Row{b.Label, b.Count, b.Liked, mean})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}

func renderRanked(out io.Writer, title string, ranked []Ranked, baseUrl string) {
	if len(ranked) == 0 {
		return
	}
	t := newTable(out, title)
	t.AppendHeader(table.Row{"#", "name", "films", "liked", "mean rating", "score"})
	for i, r := range ranked {
		name := r.Name
		if r.Link != "" {
			name = fmt.Sprintf("%s (%s%s)", r.Name, strings.TrimSuffix(baseUrl, "/"), r.Link)
		}
		t.AppendRow(table.Row{
			i + 1,
			name,
			trimFloat(r.Count),
			trimFloat(r.Liked),
			fmt.Sprintf("%.2f", r.MeanRating),
			fmt.Sprintf("%.2f", r.Score),
		})
	}
	t.Render()
}

// trimFloat prints whole numbers without decimals, weighted counts with two.
func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
