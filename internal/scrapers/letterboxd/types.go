package letterboxd

import (
	"database/sql"
)

// Film is one entry of a user's film list.
type Film struct {
	Id    int64
	Title string
	// Rating is the user's rating on the half star scale, or Unrated.
	Rating float64
	Liked  bool
	// Link is the relative path of the film's detail page, ex. "/film/heat-1995/".
	Link string
}

// Rated reports whether the user gave the film a rating.
func (f Film) Rated() bool {
	return f.Rating != Unrated
}

// Credit is a person credited on a film along with the path of their profile.
type Credit struct {
	Name string
	Link string
}

// RawDetail is everything extracted from a film's detail page and its stats fragment
// before any derived field is computed.
type RawDetail struct {
	AvgRating   float64
	ReleaseYear int
	Runtime     sql.Null[int]

	WatchedBy sql.Null[int64]
	LikedBy   sql.Null[int64]

	// Actors are in credit order.
	Actors    []Credit
	Directors []Credit
	Genres    []string
	Themes    []string
	Countries []string
	Languages []string
}
