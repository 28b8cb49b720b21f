package letterboxd

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func parseHtml(t *testing.T, contents string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestExtractDetail(t *testing.T) {
	doc := loadFixture(t, "film_detail.html")

	var detail RawDetail
	err := extractStructured(doc, &detail)
	require.NoError(t, err)
	detail.Runtime = extractRuntime(doc)
	counts := extractLists(doc, &detail)

	expected := RawDetail{
		AvgRating:   4.21,
		ReleaseYear: 1995,
		Runtime:     sql.Null[int]{V: 170, Valid: true},
		Actors: []Credit{
			{Name: "Al Pacino", Link: "/actor/al-pacino/"},
			{Name: "Robert De Niro", Link: "/actor/robert-de-niro/"},
			{Name: "Val Kilmer", Link: "/actor/val-kilmer/"},
		},
		Directors: []Credit{
			{Name: "Michael Mann", Link: "/director/michael-mann/"},
		},
		Genres:    []string{"Crime", "Drama", "Action"},
		Themes:    []string{"Crime, drugs and gangsters", "Heists and daring escapes"},
		Countries: []string{"USA"},
		Languages: []string{"English", "Spanish"},
	}
	if diff := cmp.Diff(expected, detail); diff != "" {
		t.Fatal(diff)
	}

	require.Equal(t, map[string]int{
		"actors":    3,
		"directors": 1,
		"genres":    3,
		"themes":    2,
		"countries": 1,
		"languages": 2,
	}, counts)
}

func TestExtractSparseDetail(t *testing.T) {
	doc := loadFixture(t, "film_detail_sparse.html")

	var detail RawDetail
	err := extractStructured(doc, &detail)
	require.NoError(t, err)
	detail.Runtime = extractRuntime(doc)
	extractLists(doc, &detail)

	expected := RawDetail{
		AvgRating:   3.05,
		ReleaseYear: 2021,
		Directors:   []Credit{{Name: "Someone", Link: "/director/someone/"}},
		Genres:      []string{"Animation"},
	}
	if diff := cmp.Diff(expected, detail, cmpopts.EquateEmpty()); diff != "" {
		t.Fatal(diff)
	}
	require.False(t, detail.Runtime.Valid)
}

func TestStructuredFieldFirstBlockWins(t *testing.T) {
	doc := parseHtml(t, `<html><head>
		<script>{"ratingValue":2.5,"x":1}</script>
		<script>{"ratingValue":4.5}</script>
	</head></html>`)

	value, ok := structuredField(doc, "ratingValue")
	require.True(t, ok)
	require.Equal(t, "2.5", value)

	_, ok = structuredField(doc, "releaseYear")
	require.False(t, ok)
}

func TestExtractStructuredMissing(t *testing.T) {
	cases := []string{
		`<html><head><script>{"releaseYear":"1999"}</script></head></html>`,
		`<html><head><script>{"ratingValue":3.1}</script></head></html>`,
		`<html><head><script>{"ratingValue":"n/a","releaseYear":"1999"}</script></head></html>`,
		`<html><body>no scripts</body></html>`,
	}
	for _, contents := range cases {
		var detail RawDetail
		err := extractStructured(parseHtml(t, contents), &detail)
		if !errors.Is(err, ErrMissingStructuredData) {
			t.Errorf("expected ErrMissingStructuredData for %s, got %v", contents, err)
		}
	}
}

func TestExtractRuntime(t *testing.T) {
	cases := []struct {
		html     string
		expected sql.Null[int]
	}{
		{
			html:     `<p class="text-link text-footer">96&nbsp;mins &nbsp; More at IMDb</p>`,
			expected: sql.Null[int]{V: 96, Valid: true},
		},
		{
			html:     `<p class="text-link text-footer">12 mins</p>`,
			expected: sql.Null[int]{V: 12, Valid: true},
		},
		{
			html: `<p class="text-link text-footer">More at IMDb</p>`,
		},
		{
			html: `<p class="text-footer">96&nbsp;mins</p>`,
		},
	}
	for _, test := range cases {
		got := extractRuntime(parseHtml(t, test.html))
		if got != test.expected {
			t.Errorf("runtime of %s: got %+v, expected %+v", test.html, got, test.expected)
		}
	}
}

func TestExtractStats(t *testing.T) {
	watchedBy, likedBy, err := extractStats(loadFixture(t, "film_stats.html"))
	require.NoError(t, err)
	require.Equal(t, int64(1234567), watchedBy)
	require.Equal(t, int64(345678), likedBy)

	_, _, err = extractStats(parseHtml(t, `<ul><li><a title="Watched by 12 members">12</a></li></ul>`))
	require.Error(t, err)
}

func TestParseStatCount(t *testing.T) {
	n, err := parseStatCount("Watched by 1,234 members")
	require.NoError(t, err)
	require.Equal(t, int64(1234), n)

	n, err = parseStatCount("Liked by 7 members")
	require.NoError(t, err)
	require.Equal(t, int64(7), n)

	_, err = parseStatCount("Watched")
	require.Error(t, err)
	_, err = parseStatCount("Watched by many members")
	require.Error(t, err)
}
