package db

import (
	"database/sql"
)

type Film struct {
	ID               int64
	Title            string
	DetailLink       string
	AvgRating        float64
	ReleaseYear      int64
	Decade           string
	Runtime          sql.NullInt64
	RuntimeBucket    sql.NullString
	WatchedBy        sql.NullInt64
	LikedBy          sql.NullInt64
	LikeRatio        sql.NullFloat64
	Popularity       sql.NullString
	PopularityRank   sql.NullInt64
	Likeability      sql.NullString
	LikeabilityRank  sql.NullInt64
	LastModifiedDate int64
	RunID            string
}

type Credit struct {
	FilmID      int64
	Name        string
	Link        string
	CreditOrder int64
}

type FilmAttribute struct {
	FilmID   int64
	Kind     string
	Name     string
	Position int64
}

type UserFilm struct {
	Username  string
	FilmID    int64
	Title     string
	Rating    float64
	Liked     bool
	ListOrder int64
	ScrapedAt int64
}

type SyncRun struct {
	ID              string
	StartedAt       int64
	FinishedAt      int64
	Usernames       string
	NewFilms        int64
	SkippedFilms    int64
	IncompleteFilms int64
}
