package domain

import (
	"time"
)

// SourceOpenMeteo tags samples produced by the Open-Meteo extractor.
const SourceOpenMeteo = "open-meteo"

// WeatherSampleInput carries the raw values for NewWeatherSample. Nil
// pointers mean "no reading".
type WeatherSampleInput struct {
	Timestamp       time.Time
	TemperatureC    *float64
	WindspeedMPS    *float64
	PrecipitationMM *float64
	Lat             float64
	Lon             float64
	Source          string
}

// WeatherSample is one hourly observation at a fixed location. It is only
// obtainable through NewWeatherSample and cannot be modified afterwards.
type WeatherSample struct {
	timestamp       time.Time
	temperatureC    *float64
	windspeedMPS    *float64
	precipitationMM *float64
	lat             float64
	lon             float64
	source          string
}

// NewWeatherSample validates in and returns the corresponding sample.
func NewWeatherSample(in WeatherSampleInput) (WeatherSample, error) {
	ts, err := normalizeTimestamp(in.Timestamp)
	if err != nil {
		return WeatherSample{}, err
	}
	if err := validateLatitude(in.Lat); err != nil {
		return WeatherSample{}, err
	}
	if err := validateLongitude(in.Lon); err != nil {
		return WeatherSample{}, err
	}
	if in.Source == "" {
		return WeatherSample{}, &ValidationError{Field: "source", Reason: "required"}
	}

	return WeatherSample{
		timestamp:       ts,
		temperatureC:    copyFloat(in.TemperatureC),
		windspeedMPS:    copyFloat(in.WindspeedMPS),
		precipitationMM: copyFloat(in.PrecipitationMM),
		lat:             in.Lat,
		lon:             in.Lon,
		source:          in.Source,
	}, nil
}

// Timestamp returns the observation hour in UTC.
func (s WeatherSample) Timestamp() time.Time { return s.timestamp }

// TemperatureC returns the air temperature and whether one was reported.
func (s WeatherSample) TemperatureC() (float64, bool) { return readFloat(s.temperatureC) }

// WindspeedMPS returns the wind speed and whether one was reported.
func (s WeatherSample) WindspeedMPS() (float64, bool) { return readFloat(s.windspeedMPS) }

// PrecipitationMM returns the precipitation and whether one was reported.
func (s WeatherSample) PrecipitationMM() (float64, bool) { return readFloat(s.precipitationMM) }

func (s WeatherSample) Lat() float64   { return s.lat }
func (s WeatherSample) Lon() float64   { return s.lon }
func (s WeatherSample) Source() string { return s.source }

// WeatherKey is the natural key of a stored weather sample.
type WeatherKey struct {
	Timestamp time.Time
	Lat       float64
	Lon       float64
	Source    string
}

// Key returns the sample's natural key.
func (s WeatherSample) Key() WeatherKey {
	return WeatherKey{Timestamp: s.timestamp, Lat: s.lat, Lon: s.lon, Source: s.source}
}
