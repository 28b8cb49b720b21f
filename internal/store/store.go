// Package store persists the film dataset and the ratings of every synced user in
// sqlite.
package store

import (
	"boxdstats/internal/components/assert"
	"boxdstats/internal/components/chrono"
	"boxdstats/internal/components/telemetry"
	"boxdstats/internal/dataset"
	"boxdstats/internal/db"
	"boxdstats/pkg/migrations"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("boxdstats/store")

const (
	report_store_save = "store.save"
	report_store_load = "store.load"
)

type Store struct {
	db     *sql.DB
	qry    *db.Queries
	makeTx db.MakeTx
	time   chrono.API
	tel    telemetry.API
}

// Open opens the sqlite file at path (":memory:" works) and brings its schema up to
// date.
func Open(ctx context.Context, path string, clock chrono.API, tel telemetry.API) (*Store, error) {
	assert.NotEmptyStr(path)

	database, err := migrations.OpenAndMigrateDB(ctx, db.Schema, path)
	if err != nil {
		return nil, err
	}
	return New(database, clock, tel), nil
}

func New(database *sql.DB, clock chrono.API, tel telemetry.API) *Store {
	assert.NotNil(database)
	assert.NotNil(clock)
	assert.NotNil(tel)

	return &Store{
		db:     database,
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		time:   clock,
		tel:    telemetry.NewScopedAPI("store", tel),
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Snapshot returns the ids of every film in the dataset.
func (s *Store) Snapshot(ctx context.Context) (dataset.Snapshot, error) {
	ids, err := s.qry.GetFilmIds(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return dataset.NewSnapshot(ids...), nil
}

var attributeKinds = []db.AttributeKind{
	db.ATTRIBUTE_GENRE,
	db.ATTRIBUTE_THEME,
	db.ATTRIBUTE_COUNTRY,
	db.ATTRIBUTE_LANGUAGE,
}

func attributeTable(d *dataset.Dataset, kind db.AttributeKind) *[]dataset.Attribute {
	switch kind {
	case db.ATTRIBUTE_GENRE:
		return &d.Genres
	case db.ATTRIBUTE_THEME:
		return &d.Themes
	case db.ATTRIBUTE_COUNTRY:
		return &d.Countries
	case db.ATTRIBUTE_LANGUAGE:
		return &d.Languages
	}
	panic(fmt.Sprintf("unknown attribute kind '%s'", kind))
}

// Dataset loads the whole persisted dataset.
func (s *Store) Dataset(ctx context.Context) (dataset.Dataset, error) {
	ctx, span := tracer.Start(ctx, "store:Dataset")
	defer span.End()

	fail := func(err error) (dataset.Dataset, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load dataset")
		s.tel.ReportBroken(report_store_load, err)
		return dataset.Dataset{}, fmt.Errorf("load dataset: %w", err)
	}

	var out dataset.Dataset

	films, err := s.qry.GetFilms(ctx)
	if err != nil {
		return fail(err)
	}
	for _, f := range films {
		out.Films = append(out.Films, storedFilm(f, s.time.Location()))
	}

	actors, err := s.qry.GetActors(ctx)
	if err != nil {
		return fail(err)
	}
	for _, a := range actors {
		out.Actors = append(out.Actors, credit(a))
	}
	directors, err := s.qry.GetDirectors(ctx)
	if err != nil {
		return fail(err)
	}
	for _, d := range directors {
		out.Directors = append(out.Directors, credit(d))
	}

	for _, kind := range attributeKinds {
		rows, err := s.qry.GetFilmAttributes(ctx, kind)
		if err != nil {
			return fail(err)
		}
		table := attributeTable(&out, kind)
		for _, r := range rows {
			*table = append(*table, dataset.Attribute{FilmId: r.FilmID, Name: r.Name})
		}
	}

	span.SetAttributes(attribute.Int("films", len(out.Films)))
	return out, nil
}

// UserRatings is a user's full list of rated films as of a sync.
type UserRatings struct {
	Username string
	Films    []dataset.Film
}

// Batch is everything a sync writes.
type Batch struct {
	Run       dataset.Run
	StartedAt time.Time
	// Films are the new rows of the film table, Rows holds their attributes.
	Films   []dataset.StoredFilm
	Rows    dataset.Tables
	Ratings []UserRatings

	Skipped    int
	Incomplete int
}

// Save writes a batch in a single transaction, either all of it lands or none of it.
//
// A user's ratings replace whatever was stored for them before: films that left their
// list are removed.
func (s *Store) Save(ctx context.Context, batch Batch) error {
	ctx, span := tracer.Start(ctx, "store:Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", batch.Run.Id),
		attribute.Int("films", len(batch.Films)),
	)

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save batch")
		s.tel.ReportBroken(report_store_save, err, batch.Run.Id)
		return fmt.Errorf("save run %s: %w", batch.Run.Id, err)
	}

	txqry, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return fail(err)
	}
	defer discard()

	for _, f := range batch.Films {
		err = txqry.CreateFilm(ctx, filmRow(f))
		if err != nil {
			return fail(err)
		}
	}
	for _, a := range batch.Rows.Actors {
		err = txqry.CreateActor(ctx, creditRow(a))
		if err != nil {
			return fail(err)
		}
	}
	for _, d := range batch.Rows.Directors {
		err = txqry.CreateDirector(ctx, creditRow(d))
		if err != nil {
			return fail(err)
		}
	}
	attributes := map[db.AttributeKind][]dataset.Attribute{
		db.ATTRIBUTE_GENRE:    batch.Rows.Genres,
		db.ATTRIBUTE_THEME:    batch.Rows.Themes,
		db.ATTRIBUTE_COUNTRY:  batch.Rows.Countries,
		db.ATTRIBUTE_LANGUAGE: batch.Rows.Languages,
	}
	for _, kind := range attributeKinds {
		position := map[int64]int64{}
		for _, a := range attributes[kind] {
			err = txqry.CreateFilmAttribute(ctx, db.FilmAttribute{
				FilmID:   a.FilmId,
				Kind:     string(kind),
				Name:     a.Name,
				Position: position[a.FilmId],
			})
			if err != nil {
				return fail(err)
			}
			position[a.FilmId]++
		}
	}

	scrapedAt := batch.StartedAt.Unix()
	var usernames []string
	for _, ratings := range batch.Ratings {
		usernames = append(usernames, ratings.Username)
		for _, f := range ratings.Films {
			err = txqry.UpsertUserFilm(ctx, db.UpsertUserFilmParams{
				Username:  ratings.Username,
				FilmID:    f.Id,
				Title:     f.Title,
				Rating:    f.UserRating,
				Liked:     f.Liked,
				ListOrder: int64(f.ListOrder),
				ScrapedAt: scrapedAt,
			})
			if err != nil {
				return fail(err)
			}
		}
		err = txqry.DeleteStaleUserFilms(ctx, db.DeleteStaleUserFilmsParams{
			Username: ratings.Username,
			Before:   scrapedAt,
		})
		if err != nil {
			return fail(err)
		}
	}

	err = txqry.CreateSyncRun(ctx, db.CreateSyncRunParams{
		ID:              batch.Run.Id,
		StartedAt:       scrapedAt,
		FinishedAt:      s.time.Now().Unix(),
		Usernames:       strings.Join(usernames, ","),
		NewFilms:        int64(len(batch.Films)),
		SkippedFilms:    int64(batch.Skipped),
		IncompleteFilms: int64(batch.Incomplete),
	})
	if err != nil {
		return fail(err)
	}

	err = commit()
	if err != nil {
		return fail(err)
	}
	return nil
}

// UserTables returns the tables of a user: their rated films that have a detail in the
// dataset, joined with that detail.
func (s *Store) UserTables(ctx context.Context, username string) (dataset.Tables, error) {
	ctx, span := tracer.Start(ctx, "store:UserTables")
	defer span.End()
	span.SetAttributes(attribute.String("username", username))

	userFilms, err := s.qry.GetUserFilms(ctx, username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read user films")
		return dataset.Tables{}, fmt.Errorf("user films of %s: %w", username, err)
	}
	data, err := s.Dataset(ctx)
	if err != nil {
		return dataset.Tables{}, err
	}

	stored := make(map[int64]dataset.StoredFilm, len(data.Films))
	for _, f := range data.Films {
		stored[f.Id] = f
	}

	var out dataset.Tables
	keep := map[int64]bool{}
	for _, uf := range userFilms {
		film, ok := stored[uf.FilmID]
		if !ok {
			continue
		}
		keep[uf.FilmID] = true
		out.Films = append(out.Films, dataset.Film{
			Id:         uf.FilmID,
			Title:      uf.Title,
			UserRating: uf.Rating,
			Liked:      uf.Liked,
			DetailLink: film.DetailLink,
			ListOrder:  int(uf.ListOrder),
		})
		out.Details = append(out.Details, film.Detail)
	}

	restricted := dataset.Tables{
		Actors:    data.Actors,
		Directors: data.Directors,
		Genres:    data.Genres,
		Themes:    data.Themes,
		Countries: data.Countries,
		Languages: data.Languages,
	}.Restrict(keep)
	out.Actors = restricted.Actors
	out.Directors = restricted.Directors
	out.Genres = restricted.Genres
	out.Themes = restricted.Themes
	out.Countries = restricted.Countries
	out.Languages = restricted.Languages

	return out, nil
}

// FilmCount is the size of the dataset.
func (s *Store) FilmCount(ctx context.Context) (int64, error) {
	return s.qry.CountFilms(ctx)
}

func (s *Store) Usernames(ctx context.Context) ([]string, error) {
	return s.qry.GetUsernames(ctx)
}

// LatestRun returns the most recent sync run, ok is false when there was none.
func (s *Store) LatestRun(ctx context.Context) (run db.SyncRun, ok bool, err error) {
	run, err = s.qry.GetLatestSyncRun(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return db.SyncRun{}, false, nil
	}
	if err != nil {
		return db.SyncRun{}, false, err
	}
	return run, true, nil
}
