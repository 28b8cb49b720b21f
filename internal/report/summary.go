// Package report computes descriptive statistics over a user's tables.
package report

import (
	"boxdstats/internal/dataset"
	"database/sql"
	"math"
	"sort"
)

// Overview holds the headline numbers of a user's ratings.
type Overview struct {
	Films int
	Liked int

	MeanRating    float64
	MeanAvgRating float64
	// MeanDifference is the mean of (user rating - community rating), positive when the
	// user rates higher than the crowd.
	MeanDifference float64
	MeanYear       float64
	// MeanRuntime only covers films with a known runtime.
	MeanRuntime sql.Null[float64]

	// BiggestDifference is the film the user disagreed with the crowd on the most.
	BiggestDifference sql.Null[FilmStat]
	MostObscure       sql.Null[FilmStat]
	MostPopular       sql.Null[FilmStat]
}

// FilmStat pairs a film with the value that singled it out.
type FilmStat struct {
	Title string
	Link  string
	Value float64
}

// Bucket is one row of a categorical breakdown.
type Bucket struct {
	Label      string
	Count      int
	Liked      int
	MeanRating float64
}

// Ranked is an entry of a "top" list, Score is the sum of the standardized count, liked
// and mean rating columns.
type Ranked struct {
	Name       string
	Link       string
	Count      float64
	Liked      float64
	MeanRating float64
	Score      float64
}

type Summary struct {
	Overview Overview

	Ratings     []Bucket
	Decades     []Bucket
	Runtimes    []Bucket
	Popularity  []Bucket
	Likeability []Bucket

	Directors []Ranked
	Actors    []Ranked
	Genres    []Ranked
	Themes    []Ranked
	Countries []Ranked
	Languages []Ranked
}

type joined struct {
	film   dataset.Film
	detail dataset.FilmDetail
}

func join(tables dataset.Tables) ([]joined, map[int64]dataset.Film) {
	details := make(map[int64]dataset.FilmDetail, len(tables.Details))
	for _, d := range tables.Details {
		details[d.FilmId] = d
	}
	films := make(map[int64]dataset.Film, len(tables.Films))
	var out []joined
	for _, f := range tables.Films {
		d, ok := details[f.Id]
		if !ok {
			continue
		}
		films[f.Id] = f
		out = append(out, joined{film: f, detail: d})
	}
	return out, films
}

// Summarize computes every statistic of the report, topN caps the length of the top
// lists.
func Summarize(tables dataset.Tables, topN int) Summary {
	rows, films := join(tables)

	summary := Summary{
		Overview: overview(rows),
		Ratings: breakdown(rows, nil, func(j joined) (string, bool) {
			return formatRating(j.film.UserRating), true
		}),
		Decades: breakdown(rows, nil, func(j joined) (string, bool) {
			return j.detail.Decade, true
		}),
		Runtimes: breakdown(rows, dataset.RuntimeBuckets, func(j joined) (string, bool) {
			return j.detail.RuntimeBucket.V, j.detail.RuntimeBucket.Valid
		}),
		Popularity: breakdown(rows, dataset.PopularityClasses, func(j joined) (string, bool) {
			return j.detail.Popularity.V.Label, j.detail.Popularity.Valid
		}),
		Likeability: breakdown(rows, dataset.LikeabilityClasses, func(j joined) (string, bool) {
			return j.detail.Likeability.V.Label, j.detail.Likeability.Valid
		}),
	}

	minCount := float64(len(rows)) / 100
	summary.Directors = top(rankCredits(tables.Directors, films, false), topN, 1)
	summary.Actors = top(rankCredits(tables.Actors, films, true), topN, 1)
	summary.Genres = top(rankAttributes(tables.Genres, films), topN, minCount)
	summary.Themes = top(rankAttributes(tables.Themes, films), topN, minCount)
	summary.Countries = top(rankAttributes(tables.Countries, films), topN, minCount)
	summary.Languages = top(rankAttributes(tables.Languages, films), topN, minCount)

	return summary
}

func overview(rows []joined) Overview {
	var o Overview
	o.Films = len(rows)
	if len(rows) == 0 {
		return o
	}

	var rating, avg, diff, year, runtime float64
	var runtimes int
	var biggest, obscure, popular FilmStat
	var hasBiggest, hasCounts bool

	for _, r := range rows {
		if r.film.Liked {
			o.Liked++
		}
		rating += r.film.UserRating
		avg += r.detail.AvgRating
		year += float64(r.detail.ReleaseYear)
		d := r.film.UserRating - r.detail.AvgRating
		diff += d

		stat := FilmStat{Title: r.film.Title, Link: r.film.DetailLink}
		if !hasBiggest || math.Abs(d) > math.Abs(biggest.Value) {
			biggest = stat
			biggest.Value = d
			hasBiggest = true
		}
		if r.detail.Runtime.Valid {
			runtime += float64(r.detail.Runtime.V)
			runtimes++
		}
		if r.detail.WatchedBy.Valid {
			watched := float64(r.detail.WatchedBy.V)
			if !hasCounts || watched < obscure.Value {
				obscure = stat
				obscure.Value = watched
			}
			if !hasCounts || watched > popular.Value {
				popular = stat
				popular.Value = watched
			}
			hasCounts = true
		}
	}

	n := float64(len(rows))
	o.MeanRating = rating / n
	o.MeanAvgRating = avg / n
	o.MeanDifference = diff / n
	o.MeanYear = year / n
	if runtimes > 0 {
		o.MeanRuntime = sql.Null[float64]{V: runtime / float64(runtimes), Valid: true}
	}
	o.BiggestDifference = sql.Null[FilmStat]{V: biggest, Valid: hasBiggest}
	o.MostObscure = sql.Null[FilmStat]{V: obscure, Valid: hasCounts}
	o.MostPopular = sql.Null[FilmStat]{V: popular, Valid: hasCounts}
	return o
}

// breakdown groups rows by label. With a fixed `order` every label is listed even when
// empty, otherwise labels are sorted alphabetically.
func breakdown(rows []joined, order []string, label func(joined) (string, bool)) []Bucket {
	buckets := map[string]*Bucket{}
	sums := map[string]float64{}
	for _, l := range order {
		buckets[l] = &Bucket{Label: l}
	}
	for _, r := range rows {
		l, ok := label(r)
		if !ok {
			continue
		}
		b, exists := buckets[l]
		if !exists {
			b = &Bucket{Label: l}
			buckets[l] = b
		}
		b.Count++
		if r.film.Liked {
			b.Liked++
		}
		sums[l] += r.film.UserRating
	}

	labels := order
	if labels == nil {
		for l := range buckets {
			labels = append(labels, l)
		}
		sort.Strings(labels)
	}

	out := make([]Bucket, 0, len(labels))
	for _, l := range labels {
		b := buckets[l]
		if b.Count > 0 {
			b.MeanRating = sums[l] / float64(b.Count)
		}
		out = append(out, *b)
	}
	return out
}
