package domain

import (
	"time"
)

const (
	// SourceUSGS tags events produced by the USGS feed extractor.
	SourceUSGS = "usgs"

	// UnknownEventID is used when a feed item carries no usable identifier.
	UnknownEventID = "unknown"
)

// EarthquakeEventInput carries the raw values for NewEarthquakeEvent.
type EarthquakeEventInput struct {
	EventID   string
	Timestamp time.Time
	Magnitude *float64
	DepthKm   *float64
	Place     *string
	Lat       *float64
	Lon       *float64
	Source    string
}

// EarthquakeEvent is one seismic event identified by a stable external id.
type EarthquakeEvent struct {
	eventID   string
	timestamp time.Time
	magnitude *float64
	depthKm   *float64
	place     *string
	lat       *float64
	lon       *float64
	source    string
}

// NewEarthquakeEvent validates in and returns the corresponding event.
// Coordinates are optional but must be in range when present.
func NewEarthquakeEvent(in EarthquakeEventInput) (EarthquakeEvent, error) {
	if in.EventID == "" {
		return EarthquakeEvent{}, &ValidationError{Field: "event_id", Reason: "required"}
	}
	ts, err := normalizeTimestamp(in.Timestamp)
	if err != nil {
		return EarthquakeEvent{}, err
	}
	if in.Lat != nil {
		if err := validateLatitude(*in.Lat); err != nil {
			return EarthquakeEvent{}, err
		}
	}
	if in.Lon != nil {
		if err := validateLongitude(*in.Lon); err != nil {
			return EarthquakeEvent{}, err
		}
	}
	if in.Source == "" {
		return EarthquakeEvent{}, &ValidationError{Field: "source", Reason: "required"}
	}

	var place *string
	if in.Place != nil {
		p := *in.Place
		place = &p
	}

	return EarthquakeEvent{
		eventID:   in.EventID,
		timestamp: ts,
		magnitude: copyFloat(in.Magnitude),
		depthKm:   copyFloat(in.DepthKm),
		place:     place,
		lat:       copyFloat(in.Lat),
		lon:       copyFloat(in.Lon),
		source:    in.Source,
	}, nil
}

func (e EarthquakeEvent) EventID() string      { return e.eventID }
func (e EarthquakeEvent) Timestamp() time.Time { return e.timestamp }
func (e EarthquakeEvent) Source() string       { return e.source }

func (e EarthquakeEvent) Magnitude() (float64, bool) { return readFloat(e.magnitude) }
func (e EarthquakeEvent) DepthKm() (float64, bool)   { return readFloat(e.depthKm) }
func (e EarthquakeEvent) Lat() (float64, bool)       { return readFloat(e.lat) }
func (e EarthquakeEvent) Lon() (float64, bool)       { return readFloat(e.lon) }

// Place returns the human-readable location and whether one was reported.
func (e EarthquakeEvent) Place() (string, bool) {
	if e.place == nil {
		return "", false
	}
	return *e.place, true
}
