package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key, e.g. PIPELINE_DB_URL.
const EnvPrefix = "PIPELINE"

const (
	DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"
	DefaultUSGSFeedURL  = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"
)

// Error reports an invalid configuration value. It is fatal at startup.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s_%s: %s", EnvPrefix, strings.ToUpper(e.Key), e.Reason)
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL     string
	Environment     string
	OpenMeteoLat    float64
	OpenMeteoLon    float64
	OpenMeteoURL    string
	USGSFeedURL     string
	RequestTimeout  time.Duration
	AutoMigrate     bool
	DryRun          bool
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional fan-out of committed records. Empty brokers disables it.
	KafkaBrokers         []string
	KafkaWeatherTopic    string
	KafkaEarthquakeTopic string

	// Optional Pushgateway for one-shot runs. Empty disables pushing.
	PushgatewayURL string
}

// Load reads configuration from the environment, after merging an optional
// .env file from the working directory. Variables already set in the process
// environment take precedence over the file.
func Load() (*Config, error) {
	_ = godotenv.Load(".env") // missing file is fine

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("open_meteo_lat", "40.7608")
	v.SetDefault("open_meteo_lon", "-111.8910")
	v.SetDefault("request_timeout_s", "15")
	v.SetDefault("env", "dev")
	v.SetDefault("open_meteo_url", DefaultOpenMeteoURL)
	v.SetDefault("usgs_feed_url", DefaultUSGSFeedURL)
	v.SetDefault("db_auto_migrate", "true")
	v.SetDefault("dry_run", "false")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_weather_topic", "weather-hourly")
	v.SetDefault("kafka_earthquake_topic", "earthquakes")
	v.SetDefault("pushgateway_url", "")

	dbURL := strings.TrimSpace(v.GetString("db_url"))
	if dbURL == "" {
		return nil, &Error{Key: "db_url", Reason: "is required"}
	}

	lat, err := parseFloatInRange(v, "open_meteo_lat", -90, 90)
	if err != nil {
		return nil, err
	}
	lon, err := parseFloatInRange(v, "open_meteo_lon", -180, 180)
	if err != nil {
		return nil, err
	}

	timeoutSecs, err := strconv.Atoi(strings.TrimSpace(v.GetString("request_timeout_s")))
	if err != nil {
		return nil, &Error{Key: "request_timeout_s", Reason: "must be an integer number of seconds"}
	}
	if timeoutSecs <= 0 {
		return nil, &Error{Key: "request_timeout_s", Reason: "must be greater than 0"}
	}

	shutdownTimeout, err := time.ParseDuration(strings.TrimSpace(v.GetString("shutdown_timeout")))
	if err != nil || shutdownTimeout <= 0 {
		return nil, &Error{Key: "shutdown_timeout", Reason: "must be a positive duration"}
	}

	autoMigrate, err := parseBool(v, "db_auto_migrate")
	if err != nil {
		return nil, err
	}
	dryRun, err := parseBool(v, "dry_run")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:     dbURL,
		Environment:     strings.ToLower(strings.TrimSpace(v.GetString("env"))),
		OpenMeteoLat:    lat,
		OpenMeteoLon:    lon,
		OpenMeteoURL:    strings.TrimSpace(v.GetString("open_meteo_url")),
		USGSFeedURL:     strings.TrimSpace(v.GetString("usgs_feed_url")),
		RequestTimeout:  time.Duration(timeoutSecs) * time.Second,
		AutoMigrate:     autoMigrate,
		DryRun:          dryRun,
		HTTPAddr:        strings.TrimSpace(v.GetString("http_addr")),
		LogLevel:        strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		LogFormat:       strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:         parseList(v.GetString("kafka_brokers")),
		KafkaWeatherTopic:    strings.TrimSpace(v.GetString("kafka_weather_topic")),
		KafkaEarthquakeTopic: strings.TrimSpace(v.GetString("kafka_earthquake_topic")),

		PushgatewayURL: strings.TrimSpace(v.GetString("pushgateway_url")),
	}

	if cfg.OpenMeteoURL == "" {
		return nil, &Error{Key: "open_meteo_url", Reason: "must not be empty"}
	}
	if cfg.USGSFeedURL == "" {
		return nil, &Error{Key: "usgs_feed_url", Reason: "must not be empty"}
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, &Error{Key: "log_format", Reason: "must be json or text"}
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, &Error{Key: "log_level", Reason: "must be debug, info, warn or error"}
	}
	if cfg.KafkaEnabled() && (cfg.KafkaWeatherTopic == "" || cfg.KafkaEarthquakeTopic == "") {
		return nil, &Error{Key: "kafka_brokers", Reason: "is set but a topic is empty"}
	}

	return cfg, nil
}

// KafkaEnabled reports whether committed records are published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseFloatInRange(v *viper.Viper, key string, lo, hi float64) (float64, error) {
	raw := strings.TrimSpace(v.GetString(key))
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &Error{Key: key, Reason: fmt.Sprintf("%q is not a number", raw)}
	}
	if !(f >= lo && f <= hi) {
		return 0, &Error{Key: key, Reason: fmt.Sprintf("must be between %g and %g", lo, hi)}
	}
	return f, nil
}

func parseBool(v *viper.Viper, key string) (bool, error) {
	raw := strings.TrimSpace(v.GetString(key))
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &Error{Key: key, Reason: fmt.Sprintf("%q is not a boolean", raw)}
	}
	return b, nil
}

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
