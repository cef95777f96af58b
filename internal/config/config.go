// Package config loads application settings from the environment, with an
// optional app.env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the service reads at startup.
type Config struct {
	ServerPort   string
	ClientOrigin string
	Env          string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	EmailEnabled bool
	AWSRegion    string
	EmailFrom    string

	Geo GeoConfig
}

// GeoConfig groups the geospatial tunables. Timeouts are configurable on
// purpose; position acquisition budgets vary per deployment.
type GeoConfig struct {
	// DefaultFuzzRadiusMeters substitutes for non-positive fuzz radii.
	DefaultFuzzRadiusMeters float64
	// PositionFreshness is how long a cached device position is served
	// without a fresh one-shot request.
	PositionFreshness time.Duration
	// PositionTimeout bounds a one-shot position request.
	PositionTimeout time.Duration
	// NearbyDefaultRadiusMeters applies when a nearby query omits a radius.
	NearbyDefaultRadiusMeters float64
	// NearbyMaxRadiusMeters caps the radius a caller may request.
	NearbyMaxRadiusMeters float64
}

// LoadConfig reads configuration from path/app.env when present and from
// the process environment otherwise. Environment variables win.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("CLIENT_ORIGIN", "http://localhost:5173")
	v.SetDefault("ENV", "development")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("EMAIL_ENABLED", false)
	v.SetDefault("AWS_REGION", "ca-central-1")
	v.SetDefault("EMAIL_FROM", "")
	v.SetDefault("GEO_DEFAULT_FUZZ_RADIUS_M", 10000)
	v.SetDefault("GEO_POSITION_FRESHNESS_SECONDS", 30)
	v.SetDefault("GEO_POSITION_TIMEOUT_SECONDS", 12)
	v.SetDefault("GEO_NEARBY_DEFAULT_RADIUS_M", 500)
	v.SetDefault("GEO_NEARBY_MAX_RADIUS_M", 5000)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; anything else is a real problem.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read app.env: %w", err)
		}
	}

	cfg := &Config{
		ServerPort:    v.GetString("SERVER_PORT"),
		ClientOrigin:  v.GetString("CLIENT_ORIGIN"),
		Env:           v.GetString("ENV"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		EmailEnabled:  v.GetBool("EMAIL_ENABLED"),
		AWSRegion:     v.GetString("AWS_REGION"),
		EmailFrom:     v.GetString("EMAIL_FROM"),
		Geo: GeoConfig{
			DefaultFuzzRadiusMeters:   v.GetFloat64("GEO_DEFAULT_FUZZ_RADIUS_M"),
			PositionFreshness:         time.Duration(v.GetInt("GEO_POSITION_FRESHNESS_SECONDS")) * time.Second,
			PositionTimeout:           time.Duration(v.GetInt("GEO_POSITION_TIMEOUT_SECONDS")) * time.Second,
			NearbyDefaultRadiusMeters: v.GetFloat64("GEO_NEARBY_DEFAULT_RADIUS_M"),
			NearbyMaxRadiusMeters:     v.GetFloat64("GEO_NEARBY_MAX_RADIUS_M"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}

	return cfg, nil
}
