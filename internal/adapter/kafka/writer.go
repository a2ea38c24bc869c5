// Package kafka publishes committed weather samples and earthquake events to
// Kafka topics so downstream consumers can react without polling the database.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-quake-ingest/internal/config"
	"github.com/couchcryptid/weather-quake-ingest/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// encodeFunc turns one record into a message stamped with publishedAt.
type encodeFunc[T any] func(record T, publishedAt time.Time) (kafkago.Message, error)

// Publisher produces one message per record to a single topic.
// It implements pipeline.Publisher.
type Publisher[T any] struct {
	writer messageWriter
	encode encodeFunc[T]
	clock  clockwork.Clock
	logger *slog.Logger
}

func newWriter(cfg *config.Config, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: cfg.RequestTimeout,
	}
}

// NewWeatherPublisher creates a producer for the configured weather topic.
// Messages are keyed by the sample's natural key, so every update of one
// sample lands on the same partition.
func NewWeatherPublisher(cfg *config.Config, logger *slog.Logger) *Publisher[domain.WeatherSample] {
	return &Publisher[domain.WeatherSample]{
		writer: newWriter(cfg, cfg.KafkaWeatherTopic),
		encode: encodeWeather,
		clock:  clockwork.NewRealClock(),
		logger: logger.With("topic", cfg.KafkaWeatherTopic),
	}
}

// NewEarthquakePublisher creates a producer for the configured earthquake
// topic. Messages are keyed by event id.
func NewEarthquakePublisher(cfg *config.Config, logger *slog.Logger) *Publisher[domain.EarthquakeEvent] {
	return &Publisher[domain.EarthquakeEvent]{
		writer: newWriter(cfg, cfg.KafkaEarthquakeTopic),
		encode: encodeEarthquake,
		clock:  clockwork.NewRealClock(),
		logger: logger.With("topic", cfg.KafkaEarthquakeTopic),
	}
}

// Publish serializes records and writes them in a single WriteMessages call.
func (p *Publisher[T]) Publish(ctx context.Context, records []T) error {
	if len(records) == 0 {
		return nil
	}
	now := p.clock.Now().UTC()
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := p.encode(records[i], now)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	p.logger.Debug("published records", "count", len(msgs))
	return nil
}

func (p *Publisher[T]) Close() error {
	return p.writer.Close()
}

// Wire formats. Optional readings are omitted when absent.

type weatherMessage struct {
	TimestampUTC    time.Time `json:"ts_utc"`
	TemperatureC    *float64  `json:"temperature_c,omitempty"`
	WindspeedMPS    *float64  `json:"windspeed_mps,omitempty"`
	PrecipitationMM *float64  `json:"precipitation_mm,omitempty"`
	Lat             float64   `json:"lat"`
	Lon             float64   `json:"lon"`
	Source          string    `json:"source"`
}

type earthquakeMessage struct {
	EventID      string    `json:"event_id"`
	TimestampUTC time.Time `json:"ts_utc"`
	Magnitude    *float64  `json:"magnitude,omitempty"`
	DepthKm      *float64  `json:"depth_km,omitempty"`
	Place        *string   `json:"place,omitempty"`
	Lat          *float64  `json:"lat,omitempty"`
	Lon          *float64  `json:"lon,omitempty"`
	Source       string    `json:"source"`
}

func encodeWeather(s domain.WeatherSample, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(weatherMessage{
		TimestampUTC:    s.Timestamp(),
		TemperatureC:    optionalFloat(s.TemperatureC()),
		WindspeedMPS:    optionalFloat(s.WindspeedMPS()),
		PrecipitationMM: optionalFloat(s.PrecipitationMM()),
		Lat:             s.Lat(),
		Lon:             s.Lon(),
		Source:          s.Source(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize weather sample: %w", err)
	}
	return kafkago.Message{
		Key:     []byte(weatherMessageKey(s)),
		Value:   data,
		Headers: headers("weather", s.Source(), publishedAt),
	}, nil
}

func encodeEarthquake(e domain.EarthquakeEvent, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(earthquakeMessage{
		EventID:      e.EventID(),
		TimestampUTC: e.Timestamp(),
		Magnitude:    optionalFloat(e.Magnitude()),
		DepthKm:      optionalFloat(e.DepthKm()),
		Place:        optionalString(e.Place()),
		Lat:          optionalFloat(e.Lat()),
		Lon:          optionalFloat(e.Lon()),
		Source:       e.Source(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize earthquake event %s: %w", e.EventID(), err)
	}
	return kafkago.Message{
		Key:     []byte(e.EventID()),
		Value:   data,
		Headers: headers("earthquake", e.Source(), publishedAt),
	}, nil
}

// weatherMessageKey renders the natural key, e.g.
// "open-meteo|2024-04-26T15:00:00Z|40.7608|-111.891".
func weatherMessageKey(s domain.WeatherSample) string {
	return s.Source() + "|" +
		s.Timestamp().Format(time.RFC3339Nano) + "|" +
		strconv.FormatFloat(s.Lat(), 'f', -1, 64) + "|" +
		strconv.FormatFloat(s.Lon(), 'f', -1, 64)
}

func headers(recordType, source string, publishedAt time.Time) []kafkago.Header {
	return []kafkago.Header{
		{Key: "record_type", Value: []byte(recordType)},
		{Key: "source", Value: []byte(source)},
		{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
	}
}

func optionalFloat(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func optionalString(v string, ok bool) *string {
	if !ok {
		return nil
	}
	return &v
}
