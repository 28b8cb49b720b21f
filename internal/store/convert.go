package store

import (
	"boxdstats/internal/dataset"
	"boxdstats/internal/db"
	"database/sql"
	"time"
)

func nullInt(v sql.Null[int]) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v.V), Valid: v.Valid}
}

func nullInt64(v sql.Null[int64]) sql.NullInt64 {
	return sql.NullInt64{Int64: v.V, Valid: v.Valid}
}

func nullString(v sql.Null[string]) sql.NullString {
	return sql.NullString{String: v.V, Valid: v.Valid}
}

func nullFloat(v sql.Null[float64]) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v.V, Valid: v.Valid}
}

func classColumns(v sql.Null[dataset.Class]) (sql.NullString, sql.NullInt64) {
	if !v.Valid {
		return sql.NullString{}, sql.NullInt64{}
	}
	return sql.NullString{String: v.V.Label, Valid: true},
		sql.NullInt64{Int64: int64(v.V.Rank), Valid: true}
}

func classFromColumns(label sql.NullString, rank sql.NullInt64) sql.Null[dataset.Class] {
	if !label.Valid || !rank.Valid {
		return sql.Null[dataset.Class]{}
	}
	return sql.Null[dataset.Class]{
		V:     dataset.Class{Label: label.String, Rank: int(rank.Int64)},
		Valid: true,
	}
}

func filmRow(f dataset.StoredFilm) db.Film {
	popularity, popularityRank := classColumns(f.Detail.Popularity)
	likeability, likeabilityRank := classColumns(f.Detail.Likeability)
	return db.Film{
		ID:               f.Id,
		Title:            f.Title,
		DetailLink:       f.DetailLink,
		AvgRating:        f.Detail.AvgRating,
		ReleaseYear:      int64(f.Detail.ReleaseYear),
		Decade:           f.Detail.Decade,
		Runtime:          nullInt(f.Detail.Runtime),
		RuntimeBucket:    nullString(f.Detail.RuntimeBucket),
		WatchedBy:        nullInt64(f.Detail.WatchedBy),
		LikedBy:          nullInt64(f.Detail.LikedBy),
		LikeRatio:        nullFloat(f.Detail.LikeRatio),
		Popularity:       popularity,
		PopularityRank:   popularityRank,
		Likeability:      likeability,
		LikeabilityRank:  likeabilityRank,
		LastModifiedDate: f.LastModifiedDate.Unix(),
		RunID:            f.RunId,
	}
}

func storedFilm(row db.Film, location *time.Location) dataset.StoredFilm {
	return dataset.StoredFilm{
		Id:         row.ID,
		Title:      row.Title,
		DetailLink: row.DetailLink,
		Detail: dataset.FilmDetail{
			FilmId:        row.ID,
			AvgRating:     row.AvgRating,
			ReleaseYear:   int(row.ReleaseYear),
			Decade:        row.Decade,
			Runtime:       sql.Null[int]{V: int(row.Runtime.Int64), Valid: row.Runtime.Valid},
			RuntimeBucket: sql.Null[string]{V: row.RuntimeBucket.String, Valid: row.RuntimeBucket.Valid},
			WatchedBy:     sql.Null[int64]{V: row.WatchedBy.Int64, Valid: row.WatchedBy.Valid},
			LikedBy:       sql.Null[int64]{V: row.LikedBy.Int64, Valid: row.LikedBy.Valid},
			LikeRatio:     sql.Null[float64]{V: row.LikeRatio.Float64, Valid: row.LikeRatio.Valid},
			Popularity:    classFromColumns(row.Popularity, row.PopularityRank),
			Likeability:   classFromColumns(row.Likeability, row.LikeabilityRank),
		},
		LastModifiedDate: time.Unix(row.LastModifiedDate, 0).In(location),
		RunId:            row.RunID,
	}
}

func creditRow(c dataset.Credit) db.Credit {
	return db.Credit{
		FilmID:      c.FilmId,
		Name:        c.Name,
		Link:        c.Link,
		CreditOrder: int64(c.CreditOrder),
	}
}

func credit(row db.Credit) dataset.Credit {
	return dataset.Credit{
		FilmId:      row.FilmID,
		Name:        row.Name,
		Link:        row.Link,
		CreditOrder: int(row.CreditOrder),
	}
}
