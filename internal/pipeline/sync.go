package pipeline

import (
	"boxdstats/internal/components/assert"
	"boxdstats/internal/components/chrono"
	"boxdstats/internal/components/telemetry"
	"boxdstats/internal/dataset"
	"boxdstats/internal/store"
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const report_sync = "sync"

// Store is the part of *store.Store a Syncer needs.
type Store interface {
	Snapshot(ctx context.Context) (dataset.Snapshot, error)
	Save(ctx context.Context, batch store.Batch) error
}

// UserFailure is a username whose list could not be fetched.
type UserFailure struct {
	Username string
	Err      error
}

type SyncReport struct {
	RunId string
	// NewIds are the films appended to the dataset, in list order.
	NewIds []int64
	// Skipped counts rated films that were already in the dataset.
	Skipped    int
	Incomplete []Incomplete
	Failed     []UserFailure
}

type Syncer struct {
	pipeline *Pipeline
	store    Store
	time     chrono.API
	tel      telemetry.API
}

func NewSyncer(pipeline *Pipeline, storage Store, clock chrono.API, tel telemetry.API) Syncer {
	assert.NotNil(pipeline)
	assert.NotNil(storage)
	assert.NotNil(clock)
	assert.NotNil(tel)

	return Syncer{
		pipeline: pipeline,
		store:    storage,
		time:     clock,
		tel:      telemetry.NewScopedAPI("sync", tel),
	}
}

// Sync brings the dataset up to date with the lists of usernames.
//
// Only films that are missing from the dataset get their details fetched, a film shared
// by several users is fetched once. A username whose list cannot be fetched is reported
// in SyncReport.Failed and the others carry on. Everything the run found is saved in a
// single transaction at the end, a failed or cancelled run saves nothing.
func (s Syncer) Sync(ctx context.Context, usernames ...string) (SyncReport, error) {
	ctx, span := tracer.Start(ctx, "sync:Sync")
	defer span.End()

	startedAt := s.time.Now()
	run := dataset.Run{
		Id:   uuid.NewString(),
		Date: chrono.Date(startedAt),
	}
	span.SetAttributes(
		attribute.String("run_id", run.Id),
		attribute.StringSlice("usernames", usernames),
	)

	fail := func(err error) (SyncReport, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
		return SyncReport{}, err
	}

	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return fail(err)
	}

	report := SyncReport{RunId: run.Id}
	var ratings []store.UserRatings
	var films []dataset.StoredFilm
	var rows dataset.Tables

	for _, username := range usernames {
		_, rated, err := s.pipeline.ListRated(ctx, username)
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		if err != nil {
			s.tel.ReportWarning(report_sync, fmt.Errorf("list %s: %w", username, err))
			report.Failed = append(report.Failed, UserFailure{Username: username, Err: err})
			continue
		}

		delta := dataset.Delta(snapshot, rated)
		// rated can hold the same film twice, the count is over distinct ids
		report.Skipped += len(dataset.Delta(nil, rated)) - len(delta)
		s.tel.ReportDebug("sync delta", username, "rated", len(rated), "new", len(delta))

		result, err := s.pipeline.Details(ctx, delta)
		if err != nil {
			return fail(err)
		}
		report.Incomplete = append(report.Incomplete, result.Incomplete...)

		userFilms, added := dataset.Append(snapshot, result.Tables, run)
		films = append(films, userFilms...)
		rows = concatTables(rows, added)
		snapshot = snapshot.With(added.Ids()...)

		ratings = append(ratings, store.UserRatings{Username: username, Films: rated})
	}

	for _, f := range films {
		report.NewIds = append(report.NewIds, f.Id)
	}

	if len(ratings) > 0 {
		err = s.store.Save(ctx, store.Batch{
			Run:        run,
			StartedAt:  startedAt,
			Films:      films,
			Rows:       rows,
			Ratings:    ratings,
			Skipped:    report.Skipped,
			Incomplete: len(report.Incomplete),
		})
		if err != nil {
			return fail(err)
		}
	}

	s.tel.ReportCount(report_sync, int64(len(report.NewIds)))
	span.SetAttributes(
		attribute.Int("new", len(report.NewIds)),
		attribute.Int("skipped", report.Skipped),
		attribute.Int("incomplete", len(report.Incomplete)),
	)
	return report, nil
}

func concatTables(a, b dataset.Tables) dataset.Tables {
	return dataset.Tables{
		Films:     append(a.Films, b.Films...),
		Details:   append(a.Details, b.Details...),
		Actors:    append(a.Actors, b.Actors...),
		Directors: append(a.Directors, b.Directors...),
		Genres:    append(a.Genres, b.Genres...),
		Themes:    append(a.Themes, b.Themes...),
		Countries: append(a.Countries, b.Countries...),
		Languages: append(a.Languages, b.Languages...),
	}
}
