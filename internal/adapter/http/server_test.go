package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/weather-quake-ingest/internal/adapter/http"
	"github.com/couchcryptid/weather-quake-ingest/internal/domain"
	"github.com/couchcryptid/weather-quake-ingest/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockIngester struct {
	weather     pipeline.Result
	earthquakes pipeline.Result
	err         error
	calls       []pipeline.Kind
}

func (m *mockIngester) IngestWeather(_ context.Context) (pipeline.Result, error) {
	m.calls = append(m.calls, pipeline.KindWeather)
	return m.weather, m.err
}

func (m *mockIngester) IngestEarthquakes(_ context.Context) (pipeline.Result, error) {
	m.calls = append(m.calls, pipeline.KindEarthquakes)
	return m.earthquakes, m.err
}

func newTestServer(readyErr error, ing *mockIngester) *httpadapter.Server {
	if ing == nil {
		ing = &mockIngester{}
	}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, ing, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenDatabaseUnreachable(t *testing.T) {
	srv := newTestServer(fmt.Errorf("database not reachable"), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "database not reachable", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestIngestWeatherReturnsResult(t *testing.T) {
	ing := &mockIngester{weather: pipeline.Result{
		Kind:     pipeline.KindWeather,
		Fetched:  168,
		Upserted: 168,
		Duration: 1500 * time.Millisecond,
	}}
	srv := newTestServer(nil, ing)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ingest/weather", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []pipeline.Kind{pipeline.KindWeather}, ing.calls)

	var body pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ing.weather, body)
}

func TestIngestEarthquakesRoutesToEarthquakes(t *testing.T) {
	ing := &mockIngester{earthquakes: pipeline.Result{Kind: pipeline.KindEarthquakes, Fetched: 3, Upserted: 3}}
	srv := newTestServer(nil, ing)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ingest/earthquakes", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []pipeline.Kind{pipeline.KindEarthquakes}, ing.calls)
}

func TestIngestRequiresPost(t *testing.T) {
	ing := &mockIngester{}
	srv := newTestServer(nil, ing)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ingest/weather", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, ing.calls)
}

func TestIngestErrorStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "upstream failure",
			err:  fmt.Errorf("weather fetch: %w", &domain.RemoteFetchError{Source: domain.SourceOpenMeteo, StatusCode: 500}),
			want: http.StatusBadGateway,
		},
		{
			name: "invalid record",
			err:  fmt.Errorf("earthquakes fetch: %w", &domain.ValidationError{Field: "lat", Reason: "out of range"}),
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "storage failure",
			err:  &domain.StorageError{Op: "upsert weather_hourly", Err: errors.New("connection refused")},
			want: http.StatusServiceUnavailable,
		},
		{
			name: "deadline",
			err:  fmt.Errorf("weather upsert: %w", context.DeadlineExceeded),
			want: http.StatusGatewayTimeout,
		},
		{
			name: "upstream timeout",
			err: fmt.Errorf("weather fetch: %w", &domain.RemoteFetchError{
				Source: domain.SourceOpenMeteo,
				Err:    &url.Error{Op: "Get", URL: "https://api.open-meteo.com/v1/forecast", Err: context.DeadlineExceeded},
			}),
			want: http.StatusGatewayTimeout,
		},
		{
			name: "unclassified",
			err:  errors.New("boom"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(nil, &mockIngester{err: tc.err})
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/ingest/weather", nil)

			srv.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "failed", body["status"])
			assert.Equal(t, tc.err.Error(), body["error"])
		})
	}
}
