// Package app wires configuration, upstream clients, storage and publishers
// into the two ingestion entry points.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/weather-quake-ingest/internal/adapter/kafka"
	"github.com/couchcryptid/weather-quake-ingest/internal/adapter/openmeteo"
	"github.com/couchcryptid/weather-quake-ingest/internal/adapter/postgres"
	"github.com/couchcryptid/weather-quake-ingest/internal/adapter/usgs"
	"github.com/couchcryptid/weather-quake-ingest/internal/config"
	"github.com/couchcryptid/weather-quake-ingest/internal/domain"
	"github.com/couchcryptid/weather-quake-ingest/internal/observability"
	"github.com/couchcryptid/weather-quake-ingest/internal/pipeline"
)

// database is the part of *postgres.DB the application drives directly.
type database interface {
	CheckReadiness(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close()
}

// App owns every long-lived resource of the process.
type App struct {
	cfg         *config.Config
	logger      *slog.Logger
	metrics     *observability.Metrics
	db          database
	weather     *pipeline.Service[domain.WeatherSample]
	earthquakes *pipeline.Service[domain.EarthquakeEvent]
	closers     []io.Closer
}

// New connects to the database, applies migrations when enabled and builds
// both ingestion services. Kafka publishers are attached only when brokers
// are configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	db, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, &domain.StorageError{Op: "connect", Err: err}
	}

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, &domain.StorageError{Op: "migrate", Err: err}
		}
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		db:      db,
		weather: pipeline.NewWeatherService(
			openmeteo.NewClient(cfg, logger),
			postgres.NewWeatherRepository(db),
			logger, metrics,
		).WithDryRun(cfg.DryRun),
		earthquakes: pipeline.NewEarthquakeService(
			usgs.NewClient(cfg, logger),
			postgres.NewEarthquakeRepository(db),
			logger, metrics,
		).WithDryRun(cfg.DryRun),
	}

	if cfg.KafkaEnabled() {
		wp := kafka.NewWeatherPublisher(cfg, logger)
		ep := kafka.NewEarthquakePublisher(cfg, logger)
		a.weather.WithPublisher(wp)
		a.earthquakes.WithPublisher(ep)
		a.closers = append(a.closers, wp, ep)
		logger.Info("kafka publishing enabled",
			"brokers", cfg.KafkaBrokers,
			"weather_topic", cfg.KafkaWeatherTopic,
			"earthquake_topic", cfg.KafkaEarthquakeTopic,
		)
	}

	return a, nil
}

// IngestWeather fetches the hourly forecast once and upserts it.
func (a *App) IngestWeather(ctx context.Context) (pipeline.Result, error) {
	return a.weather.Run(ctx)
}

// IngestEarthquakes fetches the past-day feed once and upserts it.
func (a *App) IngestEarthquakes(ctx context.Context) (pipeline.Result, error) {
	return a.earthquakes.Run(ctx)
}

// IngestAll runs weather then earthquakes. The second run is attempted even
// if the first fails; the returned error joins both failures.
func (a *App) IngestAll(ctx context.Context) ([]pipeline.Result, error) {
	var (
		results []pipeline.Result
		errs    []error
	)
	for _, run := range []func(context.Context) (pipeline.Result, error){a.IngestWeather, a.IngestEarthquakes} {
		res, err := run(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// Migrate applies pending schema migrations.
func (a *App) Migrate(ctx context.Context) error {
	return a.db.Migrate(ctx)
}

// CheckReadiness reports whether the database is reachable.
func (a *App) CheckReadiness(ctx context.Context) error {
	return a.db.CheckReadiness(ctx)
}

// PushMetrics sends run metrics to the configured Pushgateway. It is a no-op
// when no gateway is configured.
func (a *App) PushMetrics(ctx context.Context, job string) error {
	if a.cfg.PushgatewayURL == "" {
		return nil
	}
	if err := a.metrics.Push(ctx, a.cfg.PushgatewayURL, job); err != nil {
		return err
	}
	a.logger.Debug("metrics pushed", "gateway", a.cfg.PushgatewayURL, "job", job)
	return nil
}

// Close flushes publishers and releases the connection pool.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	a.db.Close()
	return errors.Join(errs...)
}
