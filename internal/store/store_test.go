package store

import (
	"boxdstats/internal/components/chrono"
	"boxdstats/internal/components/telemetry"
	"boxdstats/internal/dataset"
	"boxdstats/internal/scrapers/letterboxd"
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 4, 10, 30, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", chrono.FixedImpl{At: now}, telemetry.NewRecorder())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTables() dataset.Tables {
	films := []dataset.Film{
		{Id: 1, Title: "Heat", UserRating: 4, Liked: true, DetailLink: "/film/heat-1995/", ListOrder: 0},
		{Id: 2, Title: "Sparse", UserRating: 2.5, DetailLink: "/film/sparse/", ListOrder: 2},
	}
	details := map[int64]letterboxd.RawDetail{
		1: {
			AvgRating:   4.21,
			ReleaseYear: 1995,
			Runtime:     sql.Null[int]{V: 170, Valid: true},
			WatchedBy:   sql.Null[int64]{V: 1_234_567, Valid: true},
			LikedBy:     sql.Null[int64]{V: 345_678, Valid: true},
			Actors: []letterboxd.Credit{
				{Name: "Al Pacino", Link: "/actor/al-pacino/"},
				{Name: "Robert De Niro", Link: "/actor/robert-de-niro/"},
			},
			Directors: []letterboxd.Credit{{Name: "Michael Mann", Link: "/director/michael-mann/"}},
			Genres:    []string{"Crime", "Drama"},
			Themes:    []string{"Heists and daring escapes"},
			Countries: []string{"USA"},
			Languages: []string{"English", "Spanish"},
		},
		2: {AvgRating: 3.05, ReleaseYear: 2021, Genres: []string{"Animation"}},
	}
	return dataset.Normalize(films, details)
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snapshot, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, snapshot)

	run := dataset.Run{Id: "run-1", Date: chrono.Date(now)}
	merged, added := dataset.Merge(dataset.Dataset{}, sampleTables(), run)

	err = s.Save(ctx, Batch{
		Run:       run,
		StartedAt: now,
		Films:     merged.Films,
		Rows:      added,
		Ratings: []UserRatings{{
			Username: "alice",
			Films:    append(added.Films, dataset.Film{Id: 3, Title: "Incomplete", UserRating: 1, ListOrder: 3}),
		}},
		Incomplete: 1,
	})
	require.NoError(t, err)

	loaded, err := s.Dataset(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(merged, loaded); diff != "" {
		t.Fatal(diff)
	}

	snapshot, err = s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, dataset.NewSnapshot(1, 2), snapshot)

	count, err := s.FilmCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	usernames, err := s.Usernames(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, usernames)

	tables, err := s.UserTables(ctx, "alice")
	require.NoError(t, err)
	// the incomplete film has a rating but no detail, it stays out of the tables
	require.Equal(t, []int64{1, 2}, tables.Ids())
	if diff := cmp.Diff(added.Films, tables.Films); diff != "" {
		t.Fatal(diff)
	}
	require.Len(t, tables.Actors, 2)
	require.Equal(t, "Robert De Niro", tables.Actors[1].Name)
	require.Equal(t, 1, tables.Actors[1].CreditOrder)

	latest, ok, err := s.LatestRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "run-1", latest.ID)
	require.Equal(t, int64(2), latest.NewFilms)
	require.Equal(t, int64(1), latest.IncompleteFilms)
	require.Equal(t, "alice", latest.Usernames)
}

func TestStoreLatestRunEmpty(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.LatestRun(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreRatingsFollowTheList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := dataset.Run{Id: "run-1", Date: chrono.Date(now)}
	merged, added := dataset.Merge(dataset.Dataset{}, sampleTables(), first)
	err := s.Save(ctx, Batch{
		Run:       first,
		StartedAt: now,
		Films:     merged.Films,
		Rows:      added,
		Ratings:   []UserRatings{{Username: "bob", Films: added.Films}},
	})
	require.NoError(t, err)

	// the next day bob re-rated Heat and removed the other film from his list
	later := now.Add(time.Hour * 24)
	second := dataset.Run{Id: "run-2", Date: chrono.Date(later)}
	err = s.Save(ctx, Batch{
		Run:       second,
		StartedAt: later,
		Ratings: []UserRatings{{
			Username: "bob",
			Films:    []dataset.Film{{Id: 1, Title: "Heat", UserRating: 5, Liked: true}},
		}},
	})
	require.NoError(t, err)

	tables, err := s.UserTables(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, []int64{1}, tables.Ids())
	require.Equal(t, 5.0, tables.Films[0].UserRating)

	// film metadata is shared and never removed
	data, err := s.Dataset(ctx)
	require.NoError(t, err)
	require.Len(t, data.Films, 2)
}

func TestStoreSaveIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := dataset.Run{Id: "run-1", Date: chrono.Date(now)}
	merged, added := dataset.Merge(dataset.Dataset{}, sampleTables(), run)
	// an actor row pointing at a film that is not inserted violates the foreign key
	added.Actors = append(added.Actors, dataset.Credit{FilmId: 999, Name: "ghost"})

	err := s.Save(ctx, Batch{Run: run, StartedAt: now, Films: merged.Films, Rows: added})
	require.Error(t, err)

	snapshot, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, snapshot)
}
