package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	recorder := NewRecorder()
	scoped := NewScopedAPI("letterboxd", recorder)

	scoped.ReportBroken("client.film-stats", "boom")
	scoped.ReportWarning("client.films", 3)
	scoped.ReportCount("pipeline.detail", 12)

	broken := recorder.Find("broken", "client.film-stats")
	require.Len(t, broken, 1)
	require.Equal(t, "letterboxd: client.film-stats", broken[0].Id)
	require.Equal(t, []any{"boom"}, broken[0].Params)

	require.Len(t, recorder.Find("warning", "letterboxd:"), 1)
	require.Equal(t, []any{int64(12)}, recorder.Find("count", "pipeline")[0].Params)
	require.Empty(t, recorder.Find("broken", "client.films"))
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	recorder := NewRecorder()
	client := resty.New().SetBaseURL(server.URL)
	InstrumentResty(client, recorder)

	_, err := client.R().SetContext(context.Background()).Get("/")
	require.NoError(t, err)
	require.Empty(t, recorder.Find("warning", report_resty_response))

	// nothing listens on a closed server
	server.Close()
	_, err = client.R().SetContext(context.Background()).Get("/")
	require.Error(t, err)
	require.Len(t, recorder.Find("warning", report_resty_response), 1)
}

func TestSetupOtelWithoutEndpoints(t *testing.T) {
	providers, err := SetupOtel(context.Background(), "boxdstats-test", Config{})
	require.NoError(t, err)
	require.Nil(t, providers.TracerProvider)
	require.Nil(t, providers.MeterProvider)
	require.NoError(t, providers.Shutdown(context.Background()))
}
