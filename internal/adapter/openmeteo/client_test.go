package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/weather-quake-ingest/internal/config"
	"github.com/couchcryptid/weather-quake-ingest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, opts ...Option) *Client {
	cfg := &config.Config{
		OpenMeteoURL:   baseURL,
		OpenMeteoLat:   40.7608,
		OpenMeteoLon:   -111.891,
		RequestTimeout: 5 * time.Second,
	}
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func serveJSON(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, err := io.WriteString(w, body)
		assert.NoError(t, err)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch_QueryParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "47.6", q.Get("latitude"))
		assert.Equal(t, "-122.3", q.Get("longitude"))
		assert.Equal(t, "temperature_2m,precipitation,wind_speed_10m", q.Get("hourly"))
		assert.Equal(t, "UTC", q.Get("timezone"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `{"hourly":{"time":[],"temperature_2m":[],"precipitation":[],"wind_speed_10m":[]}}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, WithLocation(47.6, -122.3))
	samples, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := serveJSON(t, `{
		"latitude": 40.76,
		"longitude": -111.89,
		"hourly": {
			"time": ["2024-04-26T15:00", "2024-04-26T16:00"],
			"temperature_2m": [12.5, 13.1],
			"precipitation": [0.0, 0.4],
			"wind_speed_10m": [3.2, 4.8]
		}
	}`)

	samples, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)

	first := samples[0]
	assert.Equal(t, time.Date(2024, 4, 26, 15, 0, 0, 0, time.UTC), first.Timestamp())
	temp, ok := first.TemperatureC()
	assert.True(t, ok)
	assert.Equal(t, 12.5, temp)
	precip, ok := first.PrecipitationMM()
	assert.True(t, ok)
	assert.Equal(t, 0.0, precip)
	wind, ok := first.WindspeedMPS()
	assert.True(t, ok)
	assert.Equal(t, 3.2, wind)
	assert.Equal(t, 40.7608, first.Lat(), "samples carry the requested location")
	assert.Equal(t, -111.891, first.Lon())
	assert.Equal(t, domain.SourceOpenMeteo, first.Source())

	assert.Equal(t, 16, samples[1].Timestamp().Hour())
}

func TestClient_Fetch_TruncatesToShortestArray(t *testing.T) {
	srv := serveJSON(t, `{"hourly":{
		"time": ["2024-04-26T00:00","2024-04-26T01:00","2024-04-26T02:00","2024-04-26T03:00","2024-04-26T04:00"],
		"temperature_2m": [1, 2, 3, 4, 5],
		"precipitation": [0, 0, 0],
		"wind_speed_10m": [1, 1, 1, 1]
	}}`)

	samples, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, 2, samples[2].Timestamp().Hour())
}

func TestClient_Fetch_NullIsNoReading(t *testing.T) {
	srv := serveJSON(t, `{"hourly":{
		"time": ["2024-04-26T15:00", "2024-04-26T16:00"],
		"temperature_2m": [null, 21.5],
		"precipitation": [null, null],
		"wind_speed_10m": [0, null]
	}}`)

	samples, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)

	_, ok := samples[0].TemperatureC()
	assert.False(t, ok)
	temp, ok := samples[1].TemperatureC()
	assert.True(t, ok)
	assert.Equal(t, 21.5, temp)

	wind, ok := samples[0].WindspeedMPS()
	assert.True(t, ok, "zero wind is a reading")
	assert.Equal(t, 0.0, wind)
	_, ok = samples[1].WindspeedMPS()
	assert.False(t, ok)
}

func TestClient_Fetch_MissingHourlyBlock(t *testing.T) {
	srv := serveJSON(t, `{"latitude": 40.76}`)

	samples, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestClient_Fetch_ZonedTimestamps(t *testing.T) {
	srv := serveJSON(t, `{"hourly":{
		"time": ["2024-04-26T15:00Z", "2024-04-26T10:00:00-05:00"],
		"temperature_2m": [1, 2],
		"precipitation": [0, 0],
		"wind_speed_10m": [1, 1]
	}}`)

	samples, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	for _, s := range samples {
		assert.Equal(t, time.UTC, s.Timestamp().Location())
		assert.Equal(t, 15, s.Timestamp().Hour())
	}
}

func TestClient_Fetch_UnparseableTimestampAbortsFetch(t *testing.T) {
	srv := serveJSON(t, `{"hourly":{
		"time": ["2024-04-26T15:00", "not-a-time"],
		"temperature_2m": [1, 2],
		"precipitation": [0, 0],
		"wind_speed_10m": [1, 1]
	}}`)

	samples, err := testClient(srv.URL).Fetch(context.Background())
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Nil(t, samples)
}

func TestClient_Fetch_InvalidLocationAbortsFetch(t *testing.T) {
	srv := serveJSON(t, `{"hourly":{
		"time": ["2024-04-26T15:00"],
		"temperature_2m": [1],
		"precipitation": [0],
		"wind_speed_10m": [1]
	}}`)

	_, err := testClient(srv.URL, WithLocation(95, 0)).Fetch(context.Background())
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "lat", verr.Field)
}

func TestClient_Fetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	samples, err := testClient(srv.URL).Fetch(context.Background())
	var ferr *domain.RemoteFetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, http.StatusInternalServerError, ferr.StatusCode)
	assert.Equal(t, domain.SourceOpenMeteo, ferr.Source)
	assert.Nil(t, samples)
}

func TestClient_Fetch_MalformedBody(t *testing.T) {
	srv := serveJSON(t, `{"hourly": [`)

	_, err := testClient(srv.URL).Fetch(context.Background())
	var ferr *domain.RemoteFetchError
	require.ErrorAs(t, err, &ferr)
	assert.Zero(t, ferr.StatusCode)
}

func TestClient_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, WithTimeout(50*time.Millisecond)).Fetch(context.Background())
	var ferr *domain.RemoteFetchError
	require.ErrorAs(t, err, &ferr)
	assert.Zero(t, ferr.StatusCode)
}

func TestClient_Fetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testClient(url).Fetch(context.Background())
	var ferr *domain.RemoteFetchError
	require.ErrorAs(t, err, &ferr)
}

func TestWithTimeout_DoesNotModifySharedClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	c := testClient("http://unused", WithHTTPClient(shared), WithTimeout(50*time.Millisecond))

	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, 50*time.Millisecond, c.httpClient.Timeout)
	assert.NotSame(t, shared, c.httpClient)
}

func TestClient_Fetch_DeadlineExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL).Fetch(ctx)
	var ferr *domain.RemoteFetchError
	require.ErrorAs(t, err, &ferr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
