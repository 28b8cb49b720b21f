package pipeline

import (
	"boxdstats/internal/components/telemetry"
	"boxdstats/internal/dataset"
	"boxdstats/internal/scrapers/letterboxd"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const twoEntryList = `<html><body>
<ul class="poster-list">
	<li class="poster-container">
		<div class="film-poster" data-film-id="1" data-target-link="/film/film-a/">
			<img alt="Film A" src="a.jpg">
		</div>
		<p class="poster-viewingdata"><span class="rating">★★★½</span><span class="like"></span></p>
	</li>
	<li class="poster-container">
		<div class="film-poster" data-film-id="2" data-target-link="/film/film-b/">
			<img alt="Film B" src="b.jpg">
		</div>
		<p class="poster-viewingdata"></p>
	</li>
</ul>
</body></html>`

const minimalDetail = `<html><head>
<script type="application/ld+json">{"aggregateRating":{"ratingValue":3.8},"releaseYear":"1994"}</script>
</head><body></body></html>`

func TestScrapeEndToEnd(t *testing.T) {
	var detailFetches atomic.Int32
	var mutex sync.Mutex
	var fetched []string

	mux := http.NewServeMux()
	mux.HandleFunc("/someone/films/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(twoEntryList))
	})
	mux.HandleFunc("/film/", func(w http.ResponseWriter, r *http.Request) {
		detailFetches.Add(1)
		mutex.Lock()
		fetched = append(fetched, r.URL.Path)
		mutex.Unlock()
		w.Write([]byte(minimalDetail))
	})
	mux.HandleFunc("/csi/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tel := telemetry.NewRecorder()
	client, err := letterboxd.NewClient(letterboxd.ClientOptions{
		BaseUrl:           server.URL,
		RequestsPerSecond: 1000,
	}, tel)
	require.NoError(t, err)

	p, err := New(client, 2, tel)
	require.NoError(t, err)

	all, rated, err := p.ListRated(context.Background(), "someone")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Len(t, rated, 1)

	result, err := p.Details(context.Background(), rated)
	require.NoError(t, err)
	require.Empty(t, result.Incomplete)

	require.Equal(t, int32(1), detailFetches.Load())
	require.Equal(t, []string{"/film/film-a/"}, fetched)

	expected := []dataset.Film{
		{Id: 1, Title: "Film A", UserRating: 3.5, Liked: true, DetailLink: "/film/film-a/"},
	}
	if diff := cmp.Diff(expected, result.Tables.Films); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, "1990s", result.Tables.Details[0].Decade)
	require.False(t, result.Tables.Details[0].WatchedBy.Valid)
}

type fakeSource struct {
	films   []letterboxd.Film
	details map[string]letterboxd.RawDetail
	fail    map[string]error
	delay   time.Duration

	mutex    sync.Mutex
	requests []string
}

func (f *fakeSource) Films(ctx context.Context, username string) ([]letterboxd.Film, error) {
	if username == "missing" {
		return nil, fmt.Errorf("%w: %s", letterboxd.ErrUserNotFound, username)
	}
	return f.films, nil
}

func (f *fakeSource) FilmDetail(ctx context.Context, link string) (letterboxd.RawDetail, error) {
	f.mutex.Lock()
	f.requests = append(f.requests, link)
	f.mutex.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return letterboxd.RawDetail{}, ctx.Err()
		}
	}
	if err := f.fail[link]; err != nil {
		return letterboxd.RawDetail{}, err
	}
	return f.details[link], nil
}

func manyFilms(n int) *fakeSource {
	source := &fakeSource{
		details: map[string]letterboxd.RawDetail{},
		fail:    map[string]error{},
	}
	for i := 0; i < n; i++ {
		link := fmt.Sprintf("/film/%d/", i)
		source.films = append(source.films, letterboxd.Film{
			Id:     int64(i + 1),
			Title:  fmt.Sprintf("film %d", i),
			Rating: 3,
			Link:   link,
		})
		source.details[link] = letterboxd.RawDetail{
			ReleaseYear: 1980 + i,
			Actors:      []letterboxd.Credit{{Name: "first"}, {Name: "second"}},
		}
	}
	return source
}

func TestDetailsKeepsListOrder(t *testing.T) {
	source := manyFilms(20)
	source.delay = time.Millisecond
	p, err := New(source, 8, telemetry.NewRecorder())
	require.NoError(t, err)

	result, err := p.Scrape(context.Background(), "anyone")
	require.NoError(t, err)

	ids := result.Tables.Ids()
	require.Len(t, ids, 20)
	for i, id := range ids {
		require.Equal(t, int64(i+1), id)
	}
	for i := 0; i < len(result.Tables.Actors); i += 2 {
		require.Equal(t, "first", result.Tables.Actors[i].Name)
		require.Equal(t, "second", result.Tables.Actors[i+1].Name)
		require.Equal(t, result.Tables.Actors[i].FilmId, result.Tables.Actors[i+1].FilmId)
	}
}

func TestDetailsFailingFilmIsIncomplete(t *testing.T) {
	source := manyFilms(5)
	source.fail["/film/2/"] = &letterboxd.StatusError{Url: "/film/2/", StatusCode: http.StatusForbidden}

	tel := telemetry.NewRecorder()
	p, err := New(source, 2, tel)
	require.NoError(t, err)

	result, err := p.Scrape(context.Background(), "anyone")
	require.NoError(t, err)

	require.Equal(t, []int64{1, 2, 4, 5}, result.Tables.Ids())
	require.Len(t, result.Incomplete, 1)
	require.Equal(t, int64(3), result.Incomplete[0].Film.Id)

	var statusErr *letterboxd.StatusError
	require.True(t, errors.As(result.Incomplete[0].Err, &statusErr))
	require.Len(t, tel.Find("warning", report_pipeline_detail), 1)
}

func TestScrapeUserNotFound(t *testing.T) {
	p, err := New(manyFilms(1), 1, telemetry.NewRecorder())
	require.NoError(t, err)

	_, err = p.Scrape(context.Background(), "missing")
	require.ErrorIs(t, err, letterboxd.ErrUserNotFound)
}

func TestDetailsCancelled(t *testing.T) {
	source := manyFilms(50)
	source.delay = time.Millisecond * 50
	p, err := New(source, 2, telemetry.NewRecorder())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*20)
	defer cancel()

	_, err = p.Scrape(ctx, "anyone")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	source.mutex.Lock()
	defer source.mutex.Unlock()
	require.Less(t, len(source.requests), 50)
}

func TestUnratedFilmsAreNeverFetched(t *testing.T) {
	source := manyFilms(4)
	source.films[1].Rating = letterboxd.Unrated
	source.films[3].Rating = letterboxd.Unrated

	p, err := New(source, 4, telemetry.NewRecorder())
	require.NoError(t, err)
	_, err = p.Scrape(context.Background(), "anyone")
	require.NoError(t, err)

	for _, link := range source.requests {
		require.False(t, strings.HasSuffix(link, "/1/") || strings.HasSuffix(link, "/3/"), link)
	}
	require.Len(t, source.requests, 2)
}
