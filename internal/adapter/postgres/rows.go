package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/couchcryptid/weather-quake-ingest/internal/domain"
)

// weatherColumns holds one array per weather_hourly column, ready to be
// passed to unnest.
type weatherColumns struct {
	TS            []time.Time
	Temperature   []pgtype.Float8
	Windspeed     []pgtype.Float8
	Precipitation []pgtype.Float8
	Lat           []float64
	Lon           []float64
	Source        []string
}

func (c weatherColumns) Len() int { return len(c.TS) }

type earthquakeColumns struct {
	EventID   []string
	TS        []time.Time
	Magnitude []pgtype.Float8
	DepthKm   []pgtype.Float8
	Place     []pgtype.Text
	Lat       []pgtype.Float8
	Lon       []pgtype.Float8
	Source    []string
}

func (c earthquakeColumns) Len() int { return len(c.EventID) }

type weatherKey struct {
	tsMicros int64
	lat, lon float64
	source   string
}

// weatherRows maps samples to column arrays. Samples sharing a natural key
// collapse into the position of the first one with the values of the last.
func weatherRows(samples []domain.WeatherSample) weatherColumns {
	var cols weatherColumns
	seen := make(map[weatherKey]int, len(samples))

	for _, s := range samples {
		ts := storageTime(s.Timestamp())
		k := weatherKey{tsMicros: ts.UnixMicro(), lat: s.Lat(), lon: s.Lon(), source: s.Source()}

		i, dup := seen[k]
		if !dup {
			i = cols.Len()
			seen[k] = i
			cols.TS = append(cols.TS, ts)
			cols.Temperature = append(cols.Temperature, pgtype.Float8{})
			cols.Windspeed = append(cols.Windspeed, pgtype.Float8{})
			cols.Precipitation = append(cols.Precipitation, pgtype.Float8{})
			cols.Lat = append(cols.Lat, s.Lat())
			cols.Lon = append(cols.Lon, s.Lon())
			cols.Source = append(cols.Source, s.Source())
		}
		cols.Temperature[i] = float8(s.TemperatureC())
		cols.Windspeed[i] = float8(s.WindspeedMPS())
		cols.Precipitation[i] = float8(s.PrecipitationMM())
	}
	return cols
}

// earthquakeRows maps events to column arrays, collapsing duplicate event
// ids the same way weatherRows does.
func earthquakeRows(events []domain.EarthquakeEvent) earthquakeColumns {
	var cols earthquakeColumns
	seen := make(map[string]int, len(events))

	for _, e := range events {
		i, dup := seen[e.EventID()]
		if !dup {
			i = cols.Len()
			seen[e.EventID()] = i
			cols.EventID = append(cols.EventID, e.EventID())
			cols.TS = append(cols.TS, time.Time{})
			cols.Magnitude = append(cols.Magnitude, pgtype.Float8{})
			cols.DepthKm = append(cols.DepthKm, pgtype.Float8{})
			cols.Place = append(cols.Place, pgtype.Text{})
			cols.Lat = append(cols.Lat, pgtype.Float8{})
			cols.Lon = append(cols.Lon, pgtype.Float8{})
			cols.Source = append(cols.Source, "")
		}
		cols.TS[i] = storageTime(e.Timestamp())
		cols.Magnitude[i] = float8(e.Magnitude())
		cols.DepthKm[i] = float8(e.DepthKm())
		place, ok := e.Place()
		cols.Place[i] = pgtype.Text{String: place, Valid: ok}
		cols.Lat[i] = float8(e.Lat())
		cols.Lon[i] = float8(e.Lon())
		cols.Source[i] = e.Source()
	}
	return cols
}

// storageTime returns t in UTC truncated to the microsecond resolution of a
// PostgreSQL TIMESTAMP.
func storageTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func float8(v float64, ok bool) pgtype.Float8 {
	return pgtype.Float8{Float64: v, Valid: ok}
}
