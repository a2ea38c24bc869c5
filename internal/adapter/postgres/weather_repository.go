package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/couchcryptid/weather-quake-ingest/internal/domain"
)

const upsertWeatherSQL = `
INSERT INTO weather_hourly (ts_utc, temperature_c, windspeed_mps, precipitation_mm, lat, lon, source)
SELECT * FROM unnest(
    $1::timestamp[],
    $2::double precision[],
    $3::double precision[],
    $4::double precision[],
    $5::double precision[],
    $6::double precision[],
    $7::varchar[]
)
ON CONFLICT ON CONSTRAINT uq_weather_ts_utc_lat_lon_source DO UPDATE
SET temperature_c    = EXCLUDED.temperature_c,
    windspeed_mps    = EXCLUDED.windspeed_mps,
    precipitation_mm = EXCLUDED.precipitation_mm,
    updated_at       = now()`

// WeatherRepository upserts hourly samples into weather_hourly.
type WeatherRepository struct {
	db Beginner
}

func NewWeatherRepository(db Beginner) *WeatherRepository {
	return &WeatherRepository{db: db}
}

// UpsertMany writes samples in a transaction of its own and commits it.
// It returns the number of samples submitted.
func (r *WeatherRepository) UpsertMany(ctx context.Context, samples []domain.WeatherSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	err := inTx(ctx, r.db, "upsert weather_hourly", func(tx pgx.Tx) error {
		_, err := r.UpsertManyTx(ctx, tx, samples)
		return err
	})
	if err != nil {
		return 0, err
	}
	return len(samples), nil
}

// UpsertManyTx writes samples through tx without committing.
func (r *WeatherRepository) UpsertManyTx(ctx context.Context, tx Execer, samples []domain.WeatherSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	c := weatherRows(samples)
	_, err := tx.Exec(ctx, upsertWeatherSQL,
		c.TS, c.Temperature, c.Windspeed, c.Precipitation, c.Lat, c.Lon, c.Source)
	if err != nil {
		return 0, &domain.StorageError{Op: "upsert weather_hourly", Err: err}
	}
	return len(samples), nil
}
