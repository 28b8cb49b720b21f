package pagecache

import (
	"boxdstats/internal/components/chrono"
	"boxdstats/internal/components/telemetry"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type movableClock struct {
	now time.Time
}

func (m *movableClock) Now() time.Time {
	return m.now
}

func (m *movableClock) Location() *time.Location {
	return time.UTC
}

var _ chrono.API = &movableClock{}

func TestCacheKey(t *testing.T) {
	testCases := []struct {
		url    string
		expect string
	}{
		{url: "https://letterboxd.com/film/heat-1995/", expect: "https://letterboxd.com/film/heat-1995/"},
		{url: "HTTPS://Letterboxd.com:443/film/heat-1995/", expect: "https://letterboxd.com/film/heat-1995/"},
		{url: "https://letterboxd.com/csi/film/heat-1995/stats#top", expect: "https://letterboxd.com/csi/film/heat-1995/stats"},
		{url: "https://letterboxd.com/films/?b=2&a=1", expect: "https://letterboxd.com/films/?a=1&b=2"},
		{url: "https://letterboxd.com//film/./heat-1995/", expect: "https://letterboxd.com/film/heat-1995/"},
	}

	for _, test := range testCases {
		res, err := cacheKey(test.url)
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, test.expect, res)
	}
}

func TestCache(t *testing.T) {
	clock := &movableClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	tel := telemetry.NewRecorder()
	cache, err := Open(Options{Lifetime: time.Hour}, clock, tel)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	const url = "https://letterboxd.com/film/heat-1995/"

	_, ok := cache.Get(ctx, url)
	require.False(t, ok)

	original := []byte("<html>some webpage contents</html>")
	cache.Set(ctx, url, original)

	cached, ok := cache.Get(ctx, "https://letterboxd.com/film/heat-1995/#cast")
	require.True(t, ok)
	if diff := cmp.Diff(original, cached); diff != "" {
		t.Fatal(diff)
	}

	_, ok = cache.Get(ctx, "https://letterboxd.com/film/the-thing/")
	require.False(t, ok)

	clock.now = clock.now.Add(time.Hour)
	_, ok = cache.Get(ctx, url)
	require.False(t, ok, "entry should have expired")

	// the expired entry is gone for good, even if the clock goes back
	clock.now = clock.now.Add(-time.Hour)
	_, ok = cache.Get(ctx, url)
	require.False(t, ok)

	require.Empty(t, tel.Find("warning", "pagecache"))
}
