package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const defaultGradient = "0.1:#0000FF,0.3:#00FFFF,0.5:#00FF00,0.7:#FFFF00,0.9:#FF0000"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset location and layout.
	DataSource       string
	FetchTimeout     time.Duration
	DatasetCacheTTL  time.Duration
	DatasetCacheSize int
	StartYear        int
	StartMonth       int
	ColumnPrefix     string
	LatColumn        string
	LonColumn        string

	// Basemap and heat layer presentation.
	MapCenterLat    float64
	MapCenterLon    float64
	MapZoom         int
	TileURL         string
	TileAttribution string
	TileMaxZoom     int
	HeatMinOpacity  float64
	HeatRadius      int
	HeatBlur        int
	HeatGradient    string

	MaxSessions int

	// Kafka publishing of generated heatmaps.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	p := &parser{}
	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataSource:       sharedcfg.EnvOrDefault("RAINFALL_DATA_SOURCE", "Rainfall_Data.csv"),
		FetchTimeout:     p.positiveDuration("FETCH_TIMEOUT", "10s"),
		DatasetCacheTTL:  p.duration("DATASET_CACHE_TTL", "5m"),
		DatasetCacheSize: p.positiveInt("DATASET_CACHE_SIZE", 4),
		StartYear:        p.positiveInt("DATASET_START_YEAR", 1984),
		StartMonth:       p.positiveInt("DATASET_START_MONTH", 10),
		ColumnPrefix:     sharedcfg.EnvOrDefault("COLUMN_PREFIX", "col_"),
		LatColumn:        sharedcfg.EnvOrDefault("LAT_COLUMN", "col_1"),
		LonColumn:        sharedcfg.EnvOrDefault("LON_COLUMN", "col_2"),

		MapCenterLat:    p.float("MAP_CENTER_LAT", 33.75),
		MapCenterLon:    p.float("MAP_CENTER_LON", -112.125),
		MapZoom:         p.positiveInt("MAP_ZOOM", 10),
		TileURL:         sharedcfg.EnvOrDefault("TILE_URL", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"),
		TileAttribution: sharedcfg.EnvOrDefault("TILE_ATTRIBUTION", `Map data © <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`),
		TileMaxZoom:     p.positiveInt("TILE_MAX_ZOOM", 19),
		HeatMinOpacity:  p.float("HEAT_MIN_OPACITY", 0.5),
		HeatRadius:      p.positiveInt("HEAT_RADIUS", 15),
		HeatBlur:        p.positiveInt("HEAT_BLUR", 10),
		HeatGradient:    sharedcfg.EnvOrDefault("HEAT_GRADIENT", defaultGradient),

		MaxSessions: p.positiveInt("MAX_SESSIONS", 1000),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_HEATMAP_TOPIC", "rainfall-heatmaps"),
	}
	if p.err != nil {
		return nil, p.err
	}

	if cfg.StartMonth > 12 {
		return nil, errors.New("invalid DATASET_START_MONTH: must be between 1 and 12")
	}
	if cfg.LatColumn == cfg.LonColumn {
		return nil, errors.New("LAT_COLUMN and LON_COLUMN must differ")
	}
	if cfg.HeatMinOpacity < 0 || cfg.HeatMinOpacity > 1 {
		return nil, errors.New("invalid HEAT_MIN_OPACITY: must be between 0 and 1")
	}
	if cfg.MapCenterLat < -90 || cfg.MapCenterLat > 90 || cfg.MapCenterLon < -180 || cfg.MapCenterLon > 180 {
		return nil, errors.New("MAP_CENTER_LAT/MAP_CENTER_LON out of range")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_HEATMAP_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

// parser collects the first invalid variable so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key string, reason string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %s", key, reason)
	}
}

func (p *parser) duration(key, def string) time.Duration {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		p.fail(key, "must be a non-negative duration")
		return 0
	}
	return d
}

func (p *parser) positiveDuration(key, def string) time.Duration {
	d := p.duration(key, def)
	if d == 0 {
		p.fail(key, "must be positive")
	}
	return d
}

func (p *parser) positiveInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		p.fail(key, "must be a positive integer")
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(key, "must be a number")
		return def
	}
	return f
}
