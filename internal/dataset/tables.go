// Package dataset holds the relational tables a scrape produces and the pure functions
// that build and merge them. Nothing in here does io.
package dataset

import (
	"database/sql"
	"time"
)

// Film is a rated film of a user's list.
type Film struct {
	Id         int64
	Title      string
	UserRating float64
	Liked      bool
	DetailLink string
	// ListOrder is the film's position in the user's list, starting at 0.
	ListOrder int
}

// Class is a categorical bucket that also carries its position on the scale, 1 being
// the lowest.
type Class struct {
	Label string
	Rank  int
}

type FilmDetail struct {
	FilmId      int64
	AvgRating   float64
	ReleaseYear int
	Decade      string

	Runtime       sql.Null[int]
	RuntimeBucket sql.Null[string]

	WatchedBy   sql.Null[int64]
	LikedBy     sql.Null[int64]
	LikeRatio   sql.Null[float64]
	Popularity  sql.Null[Class]
	Likeability sql.Null[Class]
}

// Credit is a person credited on a film, CreditOrder is the position in the film's
// credit list starting at 0.
type Credit struct {
	FilmId      int64
	Name        string
	Link        string
	CreditOrder int
}

// Attribute is a plain (film, value) pair.
type Attribute struct {
	FilmId int64
	Name   string
}

// Tables is the full output of a scrape. Every FilmId in Details and in the attribute
// tables is the id of a row in Films.
type Tables struct {
	Films     []Film
	Details   []FilmDetail
	Actors    []Credit
	Directors []Credit
	Genres    []Attribute
	Themes    []Attribute
	Countries []Attribute
	Languages []Attribute
}

// Ids returns the ids of Films in order.
func (t Tables) Ids() []int64 {
	ids := make([]int64, len(t.Films))
	for i, f := range t.Films {
		ids[i] = f.Id
	}
	return ids
}

// Restrict returns the tables with only the rows belonging to films in keep.
func (t Tables) Restrict(keep map[int64]bool) Tables {
	return Tables{
		Films:     filterRows(t.Films, func(f Film) int64 { return f.Id }, keep),
		Details:   filterRows(t.Details, func(d FilmDetail) int64 { return d.FilmId }, keep),
		Actors:    filterRows(t.Actors, func(c Credit) int64 { return c.FilmId }, keep),
		Directors: filterRows(t.Directors, func(c Credit) int64 { return c.FilmId }, keep),
		Genres:    filterRows(t.Genres, attributeId, keep),
		Themes:    filterRows(t.Themes, attributeId, keep),
		Countries: filterRows(t.Countries, attributeId, keep),
		Languages: filterRows(t.Languages, attributeId, keep),
	}
}

func attributeId(a Attribute) int64 {
	return a.FilmId
}

func filterRows[T any](rows []T, id func(T) int64, keep map[int64]bool) []T {
	var out []T
	for _, r := range rows {
		if keep[id(r)] {
			out = append(out, r)
		}
	}
	return out
}

// StoredFilm is a film's metadata row in the persisted dataset.
type StoredFilm struct {
	Id               int64
	Title            string
	DetailLink       string
	Detail           FilmDetail
	LastModifiedDate time.Time
	RunId            string
}
