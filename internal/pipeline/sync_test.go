package pipeline

import (
	"boxdstats/internal/components/chrono"
	"boxdstats/internal/components/telemetry"
	"boxdstats/internal/dataset"
	"boxdstats/internal/scrapers/letterboxd"
	"boxdstats/internal/store"
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type multiUserSource struct {
	*fakeSource
	lists map[string][]letterboxd.Film
}

func (m multiUserSource) Films(ctx context.Context, username string) ([]letterboxd.Film, error) {
	films, ok := m.lists[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", letterboxd.ErrUserNotFound, username)
	}
	return films, nil
}

func setupSync(t *testing.T, source Source, at time.Time) (Syncer, *store.Store) {
	t.Helper()
	tel := telemetry.NewRecorder()
	clock := chrono.FixedImpl{At: at}

	s, err := store.Open(context.Background(), ":memory:", clock, tel)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p, err := New(source, 3, tel)
	require.NoError(t, err)
	return NewSyncer(p, s, clock, tel), s
}

func (f *fakeSource) requestCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.requests)
}

func TestSyncIsIncremental(t *testing.T) {
	source := manyFilms(5)
	day1 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	// the first run only sees the first three films
	first := &fakeSource{films: source.films[:3], details: source.details, fail: source.fail}
	syncer, s := setupSync(t, first, day1)

	report, err := syncer.Sync(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, report.NewIds)
	require.Equal(t, 0, report.Skipped)
	require.Equal(t, 3, first.requestCount())

	oldSnapshot, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	// the second run sees all five, only the two new ones are fetched
	day2 := day1.Add(time.Hour * 24)
	p, err := New(source, 3, telemetry.NewRecorder())
	require.NoError(t, err)
	second := NewSyncer(p, s, chrono.FixedImpl{At: day2}, telemetry.NewRecorder())

	report, err = second.Sync(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, []int64{4, 5}, report.NewIds)
	require.Equal(t, 3, report.Skipped)
	require.ElementsMatch(t, []string{"/film/3/", "/film/4/"}, source.requests)

	newIds := map[int64]bool{}
	for _, f := range source.films {
		newIds[f.Id] = true
	}
	difference := 0
	for id := range newIds {
		if !oldSnapshot.Has(id) {
			difference++
		}
	}

	data, err := s.Dataset(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Films, len(oldSnapshot)+difference)

	for _, f := range data.Films {
		if f.Id <= 3 {
			require.True(t, f.LastModifiedDate.Equal(chrono.Date(day1)), "film %d", f.Id)
		} else {
			require.True(t, f.LastModifiedDate.Equal(chrono.Date(day2)), "film %d", f.Id)
			require.Equal(t, report.RunId, f.RunId)
		}
	}

	tables, err := s.UserTables(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3, 4, 5}, tables.Ids())
}

func TestSyncSharedFilmsAreFetchedOnce(t *testing.T) {
	source := manyFilms(4)
	multi := multiUserSource{
		fakeSource: source,
		lists: map[string][]letterboxd.Film{
			"alice": source.films[:3],
			"bob":   source.films[1:],
		},
	}
	syncer, s := setupSync(t, multi, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	report, err := syncer.Sync(context.Background(), "alice", "bob", "nobody")
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3, 4}, report.NewIds)
	require.Equal(t, 2, report.Skipped)
	require.Equal(t, 4, source.requestCount())

	require.Len(t, report.Failed, 1)
	require.Equal(t, "nobody", report.Failed[0].Username)
	require.True(t, errors.Is(report.Failed[0].Err, letterboxd.ErrUserNotFound))

	usernames, err := s.Usernames(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, usernames)

	bob, err := s.UserTables(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3, 4}, bob.Ids())
}

func TestSyncRetriesIncompleteFilms(t *testing.T) {
	source := manyFilms(3)
	source.fail["/film/1/"] = &letterboxd.StatusError{Url: "/film/1/", StatusCode: http.StatusForbidden}
	syncer, s := setupSync(t, source, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	report, err := syncer.Sync(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3}, report.NewIds)
	require.Len(t, report.Incomplete, 1)
	require.Equal(t, int64(2), report.Incomplete[0].Film.Id)

	// the incomplete film is not in the dataset so the next sync tries it again
	delete(source.fail, "/film/1/")
	report, err = syncer.Sync(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, []int64{2}, report.NewIds)
	require.Empty(t, report.Incomplete)

	snapshot, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, dataset.NewSnapshot(1, 2, 3), snapshot)
}

func TestSyncCancelledSavesNothing(t *testing.T) {
	source := manyFilms(20)
	source.delay = time.Millisecond * 50
	syncer, s := setupSync(t, source, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*20)
	defer cancel()
	_, err := syncer.Sync(ctx, "alice")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	snapshot, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	require.Empty(t, snapshot)
}
