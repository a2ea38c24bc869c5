package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-quake-ingest/internal/domain"
	"github.com/couchcryptid/weather-quake-ingest/internal/observability"
)

// Kind names an ingestion flow. It labels logs, metrics and results.
type Kind string

const (
	KindWeather     Kind = "weather"
	KindEarthquakes Kind = "earthquakes"
)

// Result reports the outcome of one successful run.
type Result struct {
	Kind     Kind          `json:"kind"`
	Fetched  int           `json:"fetched"`
	Upserted int           `json:"upserted"`
	DryRun   bool          `json:"dry_run"`
	Duration time.Duration `json:"duration_ns"`
}

// Service runs one fetch-then-upsert cycle per call to Run.
type Service[T any] struct {
	kind      Kind
	extractor Extractor[T]
	repo      Repository[T]
	publisher Publisher[T]
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	dryRun    bool
}

// New creates a Service for the given kind.
func New[T any](kind Kind, e Extractor[T], r Repository[T], logger *slog.Logger, metrics *observability.Metrics) *Service[T] {
	return &Service[T]{
		kind:      kind,
		extractor: e,
		repo:      r,
		logger:    logger.With("kind", string(kind)),
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
	}
}

func NewWeatherService(e Extractor[domain.WeatherSample], r Repository[domain.WeatherSample], logger *slog.Logger, metrics *observability.Metrics) *Service[domain.WeatherSample] {
	return New(KindWeather, e, r, logger, metrics)
}

func NewEarthquakeService(e Extractor[domain.EarthquakeEvent], r Repository[domain.EarthquakeEvent], logger *slog.Logger, metrics *observability.Metrics) *Service[domain.EarthquakeEvent] {
	return New(KindEarthquakes, e, r, logger, metrics)
}

// WithPublisher forwards committed records to p after every successful upsert.
func (s *Service[T]) WithPublisher(p Publisher[T]) *Service[T] {
	s.publisher = p
	return s
}

// WithDryRun makes Run fetch and validate without writing anything.
func (s *Service[T]) WithDryRun(dryRun bool) *Service[T] {
	s.dryRun = dryRun
	return s
}

func (s *Service[T]) WithClock(c clockwork.Clock) *Service[T] {
	s.clock = c
	return s
}

func (s *Service[T]) Kind() Kind { return s.kind }

// Run fetches every record, then upserts them all. A fetch failure returns
// before anything is written. Publishing happens only after the upsert has
// committed; a publish failure is logged and counted but does not fail the run.
func (s *Service[T]) Run(ctx context.Context) (Result, error) {
	start := s.clock.Now()
	kind := string(s.kind)
	res := Result{Kind: s.kind, DryRun: s.dryRun}

	s.logger.Info("ingest run started", "dry_run", s.dryRun)

	records, err := s.extractor.Fetch(ctx)
	if err != nil {
		return res, s.fail(start, "fetch", err)
	}
	res.Fetched = len(records)
	s.metrics.RecordsFetched.WithLabelValues(kind).Add(float64(len(records)))
	s.logger.Info("fetch complete", "fetched", len(records))

	if s.dryRun {
		res.Duration = s.clock.Since(start)
		s.metrics.RunsTotal.WithLabelValues(kind, observability.OutcomeDryRun).Inc()
		s.metrics.RunDuration.WithLabelValues(kind).Observe(res.Duration.Seconds())
		s.logger.Info("dry run, skipping upsert", "fetched", res.Fetched, "duration", res.Duration)
		return res, nil
	}

	upserted, err := s.repo.UpsertMany(ctx, records)
	if err != nil {
		return res, s.fail(start, "upsert", err)
	}
	res.Upserted = upserted
	s.metrics.RecordsUpserted.WithLabelValues(kind).Add(float64(upserted))

	if s.publisher != nil && len(records) > 0 {
		if err := s.publisher.Publish(ctx, records); err != nil {
			s.metrics.PublishErrors.WithLabelValues(kind).Inc()
			s.logger.Warn("publish committed records failed", "error", err, "records", len(records))
		}
	}

	res.Duration = s.clock.Since(start)
	s.metrics.RunsTotal.WithLabelValues(kind, observability.OutcomeSuccess).Inc()
	s.metrics.RunDuration.WithLabelValues(kind).Observe(res.Duration.Seconds())
	s.metrics.LastSuccess.WithLabelValues(kind).Set(float64(s.clock.Now().Unix()))

	s.logger.Info("ingest run complete",
		"fetched", res.Fetched,
		"upserted", res.Upserted,
		"duration", res.Duration,
	)
	return res, nil
}

func (s *Service[T]) fail(start time.Time, stage string, err error) error {
	elapsed := s.clock.Since(start)
	s.metrics.RunsTotal.WithLabelValues(string(s.kind), observability.OutcomeFailure).Inc()
	s.metrics.RunDuration.WithLabelValues(string(s.kind)).Observe(elapsed.Seconds())
	s.logger.Error("ingest run failed", "stage", stage, "error", err, "duration", elapsed)
	return fmt.Errorf("%s %s: %w", s.kind, stage, err)
}
