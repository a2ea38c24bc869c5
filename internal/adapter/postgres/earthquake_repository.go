package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/couchcryptid/weather-quake-ingest/internal/domain"
)

const upsertEarthquakesSQL = `
INSERT INTO earthquakes (event_id, ts_utc, magnitude, depth_km, place, lat, lon, source)
SELECT * FROM unnest(
    $1::varchar[],
    $2::timestamp[],
    $3::double precision[],
    $4::double precision[],
    $5::varchar[],
    $6::double precision[],
    $7::double precision[],
    $8::varchar[]
)
ON CONFLICT (event_id) DO UPDATE
SET ts_utc     = EXCLUDED.ts_utc,
    magnitude  = EXCLUDED.magnitude,
    depth_km   = EXCLUDED.depth_km,
    place      = EXCLUDED.place,
    lat        = EXCLUDED.lat,
    lon        = EXCLUDED.lon,
    source     = EXCLUDED.source,
    updated_at = now()`

// EarthquakeRepository upserts events into earthquakes, keyed on event id.
type EarthquakeRepository struct {
	db Beginner
}

func NewEarthquakeRepository(db Beginner) *EarthquakeRepository {
	return &EarthquakeRepository{db: db}
}

// UpsertMany writes events in a transaction of its own and commits it.
// It returns the number of events submitted.
func (r *EarthquakeRepository) UpsertMany(ctx context.Context, events []domain.EarthquakeEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	err := inTx(ctx, r.db, "upsert earthquakes", func(tx pgx.Tx) error {
		_, err := r.UpsertManyTx(ctx, tx, events)
		return err
	})
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// UpsertManyTx writes events through tx without committing.
func (r *EarthquakeRepository) UpsertManyTx(ctx context.Context, tx Execer, events []domain.EarthquakeEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	c := earthquakeRows(events)
	_, err := tx.Exec(ctx, upsertEarthquakesSQL,
		c.EventID, c.TS, c.Magnitude, c.DepthKm, c.Place, c.Lat, c.Lon, c.Source)
	if err != nil {
		return 0, &domain.StorageError{Op: "upsert earthquakes", Err: err}
	}
	return len(events), nil
}
