package dataset

import (
	"boxdstats/internal/scrapers/letterboxd"
	"strings"
)

// FilterRated drops the films the user has not rated and converts the rest to rows of
// the Film table. ListOrder keeps the position in the unfiltered list.
func FilterRated(films []letterboxd.Film) []Film {
	var out []Film
	for i, f := range films {
		if !f.Rated() {
			continue
		}
		out = append(out, Film{
			Id:         f.Id,
			Title:      f.Title,
			UserRating: f.Rating,
			Liked:      f.Liked,
			DetailLink: f.Link,
			ListOrder:  i,
		})
	}
	return out
}

// NewFilmDetail derives the computed columns of a film's detail row.
func NewFilmDetail(filmId int64, raw letterboxd.RawDetail) FilmDetail {
	detail := FilmDetail{
		FilmId:        filmId,
		AvgRating:     raw.AvgRating,
		ReleaseYear:   raw.ReleaseYear,
		Decade:        Decade(raw.ReleaseYear),
		Runtime:       raw.Runtime,
		RuntimeBucket: ClassifyRuntime(raw.Runtime),
		WatchedBy:     raw.WatchedBy,
		LikedBy:       raw.LikedBy,
		LikeRatio:     LikeRatio(raw.WatchedBy, raw.LikedBy),
	}
	if raw.WatchedBy.Valid {
		detail.Popularity.V = ClassifyPopularity(raw.WatchedBy.V)
		detail.Popularity.Valid = true
	}
	if detail.LikeRatio.Valid {
		detail.Likeability.V = ClassifyLikeability(detail.LikeRatio.V)
		detail.Likeability.Valid = true
	}
	return detail
}

// Normalize joins rated films with their details into Tables.
//
// Only films that are rated and have a detail make it into the Film table, details of
// films that are not in `films` are dropped, so every film id of the result is a Film row.
// Rows keep the order of `films`, actors keep their credit order.
func Normalize(films []Film, details map[int64]letterboxd.RawDetail) Tables {
	var tables Tables
	seen := make(map[int64]bool, len(films))

	for _, film := range films {
		if film.UserRating == letterboxd.Unrated || seen[film.Id] {
			continue
		}
		raw, ok := details[film.Id]
		if !ok {
			continue
		}
		seen[film.Id] = true

		tables.Films = append(tables.Films, film)
		tables.Details = append(tables.Details, NewFilmDetail(film.Id, raw))
		tables.Actors = appendCredits(tables.Actors, film.Id, raw.Actors)
		tables.Directors = appendCredits(tables.Directors, film.Id, raw.Directors)
		tables.Genres = appendAttributes(tables.Genres, film.Id, raw.Genres)
		tables.Themes = appendAttributes(tables.Themes, film.Id, raw.Themes)
		tables.Countries = appendAttributes(tables.Countries, film.Id, raw.Countries)
		tables.Languages = appendAttributes(tables.Languages, film.Id, raw.Languages)
	}

	return tables
}

func appendCredits(rows []Credit, filmId int64, credits []letterboxd.Credit) []Credit {
	for i, c := range credits {
		rows = append(rows, Credit{
			FilmId:      filmId,
			Name:        strings.TrimSpace(c.Name),
			Link:        c.Link,
			CreditOrder: i,
		})
	}
	return rows
}

func appendAttributes(rows []Attribute, filmId int64, names []string) []Attribute {
	for _, name := range names {
		rows = append(rows, Attribute{FilmId: filmId, Name: strings.TrimSpace(name)})
	}
	return rows
}
