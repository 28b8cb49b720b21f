package dataset

import (
	"database/sql"
	"fmt"
)

// Decade returns the decade label of a release year, 1994 -> "1990s".
func Decade(year int) string {
	decade := year / 10 * 10
	if year < 0 && year%10 != 0 {
		decade -= 10
	}
	return fmt.Sprintf("%ds", decade)
}

// RuntimeBuckets lists the runtime labels in increasing order.
var RuntimeBuckets = []string{
	"less than 30m",
	"30m-1h",
	"1h-1h 30m",
	"1h 30m-2h",
	"2h-2h 30m",
	"2h 30m-3h",
	"at least 3h",
}

// ClassifyRuntime buckets a runtime in minutes into half hour steps, an unknown runtime
// has no bucket.
func ClassifyRuntime(minutes sql.Null[int]) sql.Null[string] {
	if !minutes.Valid {
		return sql.Null[string]{}
	}
	// upper bounds are exclusive
	limits := []int{30, 60, 90, 120, 150, 180}
	for i, limit := range limits {
		if minutes.V < limit {
			return sql.Null[string]{V: RuntimeBuckets[i], Valid: true}
		}
	}
	return sql.Null[string]{V: RuntimeBuckets[len(RuntimeBuckets)-1], Valid: true}
}

type threshold[T int64 | float64] struct {
	max   T
	label string
}

// classify returns the class of the first threshold v does not exceed, the last label
// applies to everything above. Boundaries belong to the lower class.
func classify[T int64 | float64](v T, thresholds []threshold[T], last string) Class {
	for i, t := range thresholds {
		if v <= t.max {
			return Class{Label: t.label, Rank: i + 1}
		}
	}
	return Class{Label: last, Rank: len(thresholds) + 1}
}

var popularityThresholds = []threshold[int64]{
	{max: 10_000, label: "very obscure"},
	{max: 100_000, label: "obscure"},
	{max: 1_000_000, label: "popular"},
}

// PopularityClasses lists the popularity labels by rank.
var PopularityClasses = []string{"very obscure", "obscure", "popular", "very popular"}

func ClassifyPopularity(watchedBy int64) Class {
	return classify(watchedBy, popularityThresholds, "very popular")
}

var likeabilityThresholds = []threshold[float64]{
	{max: 0.1, label: "rarely likeable"},
	{max: 0.2, label: "sometimes likeable"},
	{max: 0.4, label: "often likeable"},
}

// LikeabilityClasses lists the likeability labels by rank.
var LikeabilityClasses = []string{"rarely likeable", "sometimes likeable", "often likeable", "usually likeable"}

func ClassifyLikeability(ratio float64) Class {
	return classify(ratio, likeabilityThresholds, "usually likeable")
}

// LikeRatio is likedBy / watchedBy. It is absent when either count is unknown or when
// nobody watched the film.
func LikeRatio(watchedBy, likedBy sql.Null[int64]) sql.Null[float64] {
	if !watchedBy.Valid || !likedBy.Valid || watchedBy.V == 0 {
		return sql.Null[float64]{}
	}
	return sql.Null[float64]{V: float64(likedBy.V) / float64(watchedBy.V), Valid: true}
}
