package db

import (
	"context"
	"database/sql"
)

const createFilm = `-- name: CreateFilm :exec
insert into film (
    id, title, detail_link, avg_rating, release_year, decade,
    runtime, runtime_bucket, watched_by, liked_by, like_ratio,
    popularity, popularity_rank, likeability, likeability_rank,
    last_modified_date, run_id
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (id) do nothing
`

type CreateFilmParams = Film

func (q *Queries) CreateFilm(ctx context.Context, arg CreateFilmParams) error {
	_, err := q.db.ExecContext(ctx, createFilm,
		arg.ID,
		arg.Title,
		arg.DetailLink,
		arg.AvgRating,
		arg.ReleaseYear,
		arg.Decade,
		arg.Runtime,
		arg.RuntimeBucket,
		arg.WatchedBy,
		arg.LikedBy,
		arg.LikeRatio,
		arg.Popularity,
		arg.PopularityRank,
		arg.Likeability,
		arg.LikeabilityRank,
		arg.LastModifiedDate,
		arg.RunID,
	)
	return err
}

const createActor = `-- name: CreateActor :exec
insert into actor (film_id, name, link, credit_order) values (?, ?, ?, ?)
on conflict (film_id, credit_order) do nothing
`

func (q *Queries) CreateActor(ctx context.Context, arg Credit) error {
	_, err := q.db.ExecContext(ctx, createActor, arg.FilmID, arg.Name, arg.Link, arg.CreditOrder)
	return err
}

const createDirector = `-- name: CreateDirector :exec
insert into director (film_id, name, link, credit_order) values (?, ?, ?, ?)
on conflict (film_id, credit_order) do nothing
`

func (q *Queries) CreateDirector(ctx context.Context, arg Credit) error {
	_, err := q.db.ExecContext(ctx, createDirector, arg.FilmID, arg.Name, arg.Link, arg.CreditOrder)
	return err
}

const createFilmAttribute = `-- name: CreateFilmAttribute :exec
insert into film_attribute (film_id, kind, name, position) values (?, ?, ?, ?)
on conflict (film_id, kind, position) do nothing
`

func (q *Queries) CreateFilmAttribute(ctx context.Context, arg FilmAttribute) error {
	_, err := q.db.ExecContext(ctx, createFilmAttribute, arg.FilmID, arg.Kind, arg.Name, arg.Position)
	return err
}

const getFilmIds = `-- name: GetFilmIds :many
select id from film
`

func (q *Queries) GetFilmIds(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, getFilmIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getFilms = `-- name: GetFilms :many
select
    id, title, detail_link, avg_rating, release_year, decade,
    runtime, runtime_bucket, watched_by, liked_by, like_ratio,
    popularity, popularity_rank, likeability, likeability_rank,
    last_modified_date, run_id
from film
order by last_modified_date, id
`

func (q *Queries) GetFilms(ctx context.Context) ([]Film, error) {
	rows, err := q.db.QueryContext(ctx, getFilms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Film
	for rows.Next() {
		var i Film
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.DetailLink,
			&i.AvgRating,
			&i.ReleaseYear,
			&i.Decade,
			&i.Runtime,
			&i.RuntimeBucket,
			&i.WatchedBy,
			&i.LikedBy,
			&i.LikeRatio,
			&i.Popularity,
			&i.PopularityRank,
			&i.Likeability,
			&i.LikeabilityRank,
			&i.LastModifiedDate,
			&i.RunID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countFilms = `-- name: CountFilms :one
select count(*) from film
`

func (q *Queries) CountFilms(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countFilms)
	var count int64
	err := row.Scan(&count)
	return count, err
}

func (q *Queries) getCredits(ctx context.Context, query string) ([]Credit, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Credit
	for rows.Next() {
		var i Credit
		if err := rows.Scan(&i.FilmID, &i.Name, &i.Link, &i.CreditOrder); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getActors = `-- name: GetActors :many
select film_id, name, link, credit_order from actor
order by film_id, credit_order
`

func (q *Queries) GetActors(ctx context.Context) ([]Credit, error) {
	return q.getCredits(ctx, getActors)
}

const getDirectors = `-- name: GetDirectors :many
select film_id, name, link, credit_order from director
order by film_id, credit_order
`

func (q *Queries) GetDirectors(ctx context.Context) ([]Credit, error) {
	return q.getCredits(ctx, getDirectors)
}

const getFilmAttributes = `-- name: GetFilmAttributes :many
select film_id, kind, name, position from film_attribute
where kind = ?
order by film_id, position
`

func (q *Queries) GetFilmAttributes(ctx context.Context, kind AttributeKind) ([]FilmAttribute, error) {
	rows, err := q.db.QueryContext(ctx, getFilmAttributes, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FilmAttribute
	for rows.Next() {
		var i FilmAttribute
		if err := rows.Scan(&i.FilmID, &i.Kind, &i.Name, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertUserFilm = `-- name: UpsertUserFilm :exec
insert into user_film (username, film_id, title, rating, liked, list_order, scraped_at)
values (?, ?, ?, ?, ?, ?, ?)
on conflict (username, film_id) do update set
    title = excluded.title,
    rating = excluded.rating,
    liked = excluded.liked,
    list_order = excluded.list_order,
    scraped_at = excluded.scraped_at
`

type UpsertUserFilmParams = UserFilm

func (q *Queries) UpsertUserFilm(ctx context.Context, arg UpsertUserFilmParams) error {
	_, err := q.db.ExecContext(ctx, upsertUserFilm,
		arg.Username,
		arg.FilmID,
		arg.Title,
		arg.Rating,
		arg.Liked,
		arg.ListOrder,
		arg.ScrapedAt,
	)
	return err
}

const deleteStaleUserFilms = `-- name: DeleteStaleUserFilms :exec
delete from user_film where username = ? and scraped_at < ?
`

type DeleteStaleUserFilmsParams struct {
	Username string
	Before   int64
}

func (q *Queries) DeleteStaleUserFilms(ctx context.Context, arg DeleteStaleUserFilmsParams) error {
	_, err := q.db.ExecContext(ctx, deleteStaleUserFilms, arg.Username, arg.Before)
	return err
}

const getUserFilms = `-- name: GetUserFilms :many
select username, film_id, title, rating, liked, list_order, scraped_at from user_film
where username = ?
order by list_order
`

func (q *Queries) GetUserFilms(ctx context.Context, username string) ([]UserFilm, error) {
	rows, err := q.db.QueryContext(ctx, getUserFilms, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserFilm
	for rows.Next() {
		var i UserFilm
		if err := rows.Scan(
			&i.Username,
			&i.FilmID,
			&i.Title,
			&i.Rating,
			&i.Liked,
			&i.ListOrder,
			&i.ScrapedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getUsernames = `-- name: GetUsernames :many
select distinct username from user_film order by username
`

func (q *Queries) GetUsernames(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, getUsernames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, err
		}
		items = append(items, username)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createSyncRun = `-- name: CreateSyncRun :exec
insert into sync_run (id, started_at, finished_at, usernames, new_films, skipped_films, incomplete_films)
values (?, ?, ?, ?, ?, ?, ?)
`

type CreateSyncRunParams = SyncRun

func (q *Queries) CreateSyncRun(ctx context.Context, arg CreateSyncRunParams) error {
	_, err := q.db.ExecContext(ctx, createSyncRun,
		arg.ID,
		arg.StartedAt,
		arg.FinishedAt,
		arg.Usernames,
		arg.NewFilms,
		arg.SkippedFilms,
		arg.IncompleteFilms,
	)
	return err
}

const getLatestSyncRun = `-- name: GetLatestSyncRun :one
select id, started_at, finished_at, usernames, new_films, skipped_films, incomplete_films
from sync_run
order by started_at desc
limit 1
`

// GetLatestSyncRun returns sql.ErrNoRows when nothing was synced yet.
func (q *Queries) GetLatestSyncRun(ctx context.Context) (SyncRun, error) {
	row := q.db.QueryRowContext(ctx, getLatestSyncRun)
	var i SyncRun
	err := row.Scan(
		&i.ID,
		&i.StartedAt,
		&i.FinishedAt,
		&i.Usernames,
		&i.NewFilms,
		&i.SkippedFilms,
		&i.IncompleteFilms,
	)
	if err == sql.ErrNoRows {
		return SyncRun{}, err
	}
	return i, err
}
