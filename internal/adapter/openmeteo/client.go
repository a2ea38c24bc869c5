// Package openmeteo fetches hourly weather samples from the Open-Meteo
// forecast API for a single location.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-quake-ingest/internal/config"
	"github.com/couchcryptid/weather-quake-ingest/internal/domain"
)

const hourlyFields = "temperature_2m,precipitation,wind_speed_10m"

// Client implements the weather extractor against the Open-Meteo forecast endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	lat        float64
	lon        float64
	logger     *slog.Logger
}

// Option overrides a per-instance setting taken from config.
type Option func(*Client)

// WithLocation sets the coordinates the forecast is requested for.
func WithLocation(lat, lon float64) Option {
	return func(c *Client) {
		c.lat = lat
		c.lon = lon
	}
}

// WithTimeout bounds the single HTTP request. The client is copied, so a
// shared client passed to WithHTTPClient keeps its own timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying client. Apply it before WithTimeout
// if both are given; hc itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an Open-Meteo client using the configured location,
// request timeout and base URL.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    cfg.OpenMeteoURL,
		lat:        cfg.OpenMeteoLat,
		lon:        cfg.OpenMeteoLon,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch requests the hourly forecast and converts it to weather samples.
// The hourly arrays are truncated to the shortest one. Any unparseable
// timestamp or invalid sample aborts the whole fetch.
func (c *Client) Fetch(ctx context.Context) ([]domain.WeatherSample, error) {
	params := url.Values{
		"latitude":  {strconv.FormatFloat(c.lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(c.lon, 'f', -1, 64)},
		"hourly":    {hourlyFields},
		"timezone":  {"UTC"},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	var body response
	if err := c.doRequest(ctx, fullURL, &body); err != nil {
		return nil, err
	}

	h := body.Hourly
	n := min(len(h.Time), len(h.Temperature), len(h.Precipitation), len(h.WindSpeed))
	if n < max(len(h.Time), len(h.Temperature), len(h.Precipitation), len(h.WindSpeed)) {
		c.logger.Warn("open-meteo hourly arrays differ in length, truncating",
			"time", len(h.Time),
			"temperature_2m", len(h.Temperature),
			"precipitation", len(h.Precipitation),
			"wind_speed_10m", len(h.WindSpeed),
			"emitted", n,
		)
	}

	samples := make([]domain.WeatherSample, 0, n)
	for i := range n {
		ts, err := domain.ParseTimestamp(h.Time[i])
		if err != nil {
			return nil, fmt.Errorf("hourly entry %d: %w", i, err)
		}
		s, err := domain.NewWeatherSample(domain.WeatherSampleInput{
			Timestamp:       ts,
			TemperatureC:    h.Temperature[i],
			WindspeedMPS:    h.WindSpeed[i],
			PrecipitationMM: h.Precipitation[i],
			Lat:             c.lat,
			Lon:             c.lon,
			Source:          domain.SourceOpenMeteo,
		})
		if err != nil {
			return nil, fmt.Errorf("hourly entry %d: %w", i, err)
		}
		samples = append(samples, s)
	}

	c.logger.Debug("open-meteo fetch complete", "samples", len(samples), "lat", c.lat, "lon", c.lon)
	return samples, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.RemoteFetchError{Source: domain.SourceOpenMeteo, URL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.RemoteFetchError{Source: domain.SourceOpenMeteo, URL: c.baseURL, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.RemoteFetchError{
			Source: domain.SourceOpenMeteo,
			URL:    c.baseURL,
			Err:    fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

// Open-Meteo API response types. Readings are pointers so null stays "no reading".

type response struct {
	Hourly hourly `json:"hourly"`
}

type hourly struct {
	Time          []string   `json:"time"`
	Temperature   []*float64 `json:"temperature_2m"`
	Precipitation []*float64 `json:"precipitation"`
	WindSpeed     []*float64 `json:"wind_speed_10m"`
}
