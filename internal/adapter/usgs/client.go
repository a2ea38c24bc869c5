// Package usgs fetches earthquake events from the USGS GeoJSON summary feed.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/weather-quake-ingest/internal/config"
	"github.com/couchcryptid/weather-quake-ingest/internal/domain"
)

// Client implements the earthquake extractor against the USGS feed.
type Client struct {
	httpClient *http.Client
	feedURL    string
	logger     *slog.Logger
}

// Option overrides a per-instance setting taken from config.
type Option func(*Client)

// WithTimeout bounds the single HTTP request. The client is copied, so a
// shared client passed to WithHTTPClient keeps its own timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func WithFeedURL(u string) Option {
	return func(c *Client) { c.feedURL = u }
}

// WithHTTPClient replaces the underlying client. Apply it before WithTimeout
// if both are given; hc itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a USGS feed client using the configured feed URL and
// request timeout.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		feedURL:    cfg.USGSFeedURL,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads the feed and converts every feature to an earthquake event.
// A single invalid feature aborts the whole fetch.
func (c *Client) Fetch(ctx context.Context) ([]domain.EarthquakeEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.RemoteFetchError{Source: domain.SourceUSGS, URL: c.feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.RemoteFetchError{Source: domain.SourceUSGS, URL: c.feedURL, StatusCode: resp.StatusCode}
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, &domain.RemoteFetchError{
			Source: domain.SourceUSGS,
			URL:    c.feedURL,
			Err:    fmt.Errorf("decode response: %w", err),
		}
	}

	events := make([]domain.EarthquakeEvent, 0, len(fc.Features))
	for i, f := range fc.Features {
		e, err := f.toEvent()
		if err != nil {
			return nil, fmt.Errorf("feature %d (%s): %w", i, f.eventID(), err)
		}
		events = append(events, e)
	}

	c.logger.Debug("usgs fetch complete", "events", len(events))
	return events, nil
}

// USGS GeoJSON response types.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string     `json:"id"`
	Properties properties `json:"properties"`
	Geometry   *geometry  `json:"geometry"`
}

type properties struct {
	Time  *float64 `json:"time"` // epoch milliseconds
	Mag   *float64 `json:"mag"`
	Place *string  `json:"place"`
	Code  string   `json:"code"`
}

type geometry struct {
	Coordinates []*float64 `json:"coordinates"` // [lon, lat, depth_km]
}

// eventID falls back from the feature id to properties.code to "unknown".
func (f feature) eventID() string {
	if f.ID != "" {
		return f.ID
	}
	if f.Properties.Code != "" {
		return f.Properties.Code
	}
	return domain.UnknownEventID
}

// coordinate returns entry i of the geometry, or nil when the geometry is
// null or the array is too short.
func (f feature) coordinate(i int) *float64 {
	if f.Geometry == nil || i >= len(f.Geometry.Coordinates) {
		return nil
	}
	return f.Geometry.Coordinates[i]
}

func (f feature) toEvent() (domain.EarthquakeEvent, error) {
	if f.Properties.Time == nil {
		return domain.EarthquakeEvent{}, &domain.ValidationError{Field: "timestamp", Reason: "missing"}
	}
	ts, err := domain.TimeFromEpochMillis(*f.Properties.Time)
	if err != nil {
		return domain.EarthquakeEvent{}, err
	}

	return domain.NewEarthquakeEvent(domain.EarthquakeEventInput{
		EventID:   f.eventID(),
		Timestamp: ts,
		Magnitude: f.Properties.Mag,
		DepthKm:   f.coordinate(2),
		Place:     f.Properties.Place,
		Lat:       f.coordinate(1),
		Lon:       f.coordinate(0),
		Source:    domain.SourceUSGS,
	})
}
