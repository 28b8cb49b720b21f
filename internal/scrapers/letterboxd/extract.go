// extract.go holds the rules for pulling fields out of a film's detail page and stats
// fragment. Each rule only looks at a parsed document so it can be tested against a
// fixture without any http.

package letterboxd

import (
	"boxdstats/pkg/htmlutil"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// placeholder is the trailing entry of truncated lists, it links to the full list
// instead of to a name.
const placeholder = "Show All…"

const nbsp = "\u00a0"

type region func(doc *goquery.Document) *goquery.Selection

type listField struct {
	name string
	// region selects the anchors holding the values, an empty selection means the
	// film has no value for this field.
	region region
	assign func(d *RawDetail, anchors []htmlutil.Anchor)
}

// detailSchema lists every multi valued field of the detail page.
var detailSchema = []listField{
	{
		name:   "actors",
		region: selectAll("div.cast-list a"),
		assign: func(d *RawDetail, anchors []htmlutil.Anchor) { d.Actors = credits(anchors) },
	},
	{
		name:   "directors",
		region: nthDivOf("div#tab-crew", 0, ""),
		assign: func(d *RawDetail, anchors []htmlutil.Anchor) { d.Directors = credits(anchors) },
	},
	{
		name:   "genres",
		region: nthDivOf("div#tab-genres", 0, ""),
		assign: func(d *RawDetail, anchors []htmlutil.Anchor) { d.Genres = names(anchors) },
	},
	{
		name:   "themes",
		region: nthDivOf("div#tab-genres", 1, "Themes"),
		assign: func(d *RawDetail, anchors []htmlutil.Anchor) { d.Themes = names(anchors) },
	},
	{
		name:   "countries",
		region: headedDivOf("div#tab-details", "Countr"),
		assign: func(d *RawDetail, anchors []htmlutil.Anchor) { d.Countries = names(anchors) },
	},
	{
		name:   "languages",
		region: headedDivOf("div#tab-details", "Language"),
		assign: func(d *RawDetail, anchors []htmlutil.Anchor) { d.Languages = names(anchors) },
	},
}

func selectAll(selector string) region {
	return func(doc *goquery.Document) *goquery.Selection {
		return doc.Find(selector)
	}
}

// nthDivOf selects the anchors of the n-th div inside a tab. When `marker` is set the tab
// has to mention it, otherwise the region is treated as absent.
func nthDivOf(tab string, n int, marker string) region {
	return func(doc *goquery.Document) *goquery.Selection {
		sel := doc.Find(tab).First()
		if marker != "" && !strings.Contains(sel.Text(), marker) {
			return sel.Find("a").Slice(0, 0)
		}
		return sel.Find("div").Eq(n).Find("a")
	}
}

// headedDivOf selects the anchors of the div that follows the h3 whose text contains
// `heading` inside a tab.
func headedDivOf(tab string, heading string) region {
	return func(doc *goquery.Document) *goquery.Selection {
		h3 := doc.Find(tab).First().Find("h3").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), heading)
		}).First()
		return h3.NextAllFiltered("div").First().Find("a")
	}
}

func withoutPlaceholder(anchors []htmlutil.Anchor) []htmlutil.Anchor {
	out := make([]htmlutil.Anchor, 0, len(anchors))
	for _, a := range anchors {
		if a.Name == placeholder || a.Name == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func credits(anchors []htmlutil.Anchor) []Credit {
	out := make([]Credit, len(anchors))
	for i, a := range anchors {
		out[i] = Credit{Name: a.Name, Link: a.Href}
	}
	return out
}

func names(anchors []htmlutil.Anchor) []string {
	out := make([]string, len(anchors))
	for i, a := range anchors {
		out[i] = a.Name
	}
	return out
}

// extractLists applies detailSchema to the page and returns how many values each field got.
func extractLists(doc *goquery.Document, d *RawDetail) map[string]int {
	counts := make(map[string]int, len(detailSchema))
	for _, field := range detailSchema {
		anchors := withoutPlaceholder(htmlutil.GetAnchors(field.region(doc)))
		field.assign(d, anchors)
		counts[field.name] = len(anchors)
	}
	return counts
}

// structuredField returns the raw value following `token` in the first script block
// that mentions it. The blocks are json-ld wrapped in comments, so this is a substring
// search rather than a parse.
func structuredField(doc *goquery.Document, token string) (string, bool) {
	for _, script := range doc.Find("script").Nodes {
		text := htmlutil.GetText(script)
		_, after, found := strings.Cut(text, token)
		if !found {
			continue
		}
		end := strings.IndexAny(after, ",}")
		if end >= 0 {
			after = after[:end]
		}
		// what remains looks like `":3.91` or `":"1995"`
		value := strings.TrimSpace(strings.TrimPrefix(after, `"`))
		value = strings.TrimSpace(strings.TrimPrefix(value, ":"))
		value = strings.Trim(value, `"`)
		return value, true
	}
	return "", false
}

func extractStructured(doc *goquery.Document, d *RawDetail) error {
	ratingStr, ok := structuredField(doc, "ratingValue")
	if !ok {
		return fmt.Errorf("%w: ratingValue", ErrMissingStructuredData)
	}
	rating, err := strconv.ParseFloat(ratingStr, 64)
	if err != nil {
		return fmt.Errorf("%w: ratingValue %q: %v", ErrMissingStructuredData, ratingStr, err)
	}

	yearStr, ok := structuredField(doc, "releaseYear")
	if !ok {
		return fmt.Errorf("%w: releaseYear", ErrMissingStructuredData)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return fmt.Errorf("%w: releaseYear %q: %v", ErrMissingStructuredData, yearStr, err)
	}

	d.AvgRating = rating
	d.ReleaseYear = year
	return nil
}

// extractRuntime reads "124&nbsp;mins" off the page footer.
func extractRuntime(doc *goquery.Document) sql.Null[int] {
	footer := doc.Find("p.text-link.text-footer").First()
	if footer.Length() == 0 {
		return sql.Null[int]{}
	}
	text := strings.TrimSpace(footer.Text())
	minutes, _, _ := strings.Cut(text, nbsp)
	minutes, _, _ = strings.Cut(strings.TrimSpace(minutes), " ")
	value, err := strconv.Atoi(minutes)
	if err != nil {
		return sql.Null[int]{}
	}
	return sql.Null[int]{V: value, Valid: true}
}

// parseStatCount reads the number out of titles like "Watched by 1,234 members".
func parseStatCount(title string) (int64, error) {
	tokens := strings.Fields(strings.ReplaceAll(title, nbsp, " "))
	if len(tokens) < 3 {
		return 0, fmt.Errorf("unexpected stat title %q", title)
	}
	return strconv.ParseInt(strings.ReplaceAll(tokens[2], ",", ""), 10, 64)
}

// extractStats reads the watched-by and liked-by counts, the 1st and 3rd entries of the
// fragment's list.
func extractStats(doc *goquery.Document) (watchedBy, likedBy int64, err error) {
	entries := doc.Find("li")
	watchedTitle := entries.Eq(0).Find("a").AttrOr("title", "")
	likedTitle := entries.Eq(2).Find("a").AttrOr("title", "")

	watchedBy, err = parseStatCount(watchedTitle)
	if err != nil {
		return 0, 0, fmt.Errorf("watched by: %w", err)
	}
	likedBy, err = parseStatCount(likedTitle)
	if err != nil {
		return 0, 0, fmt.Errorf("liked by: %w", err)
	}
	return watchedBy, likedBy, nil
}
