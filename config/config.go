package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the server needs at startup
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	APIs     APIConfig      `yaml:"apis"`
	Location LocationConfig `yaml:"location"`
	Auth     AuthConfig     `yaml:"auth"`
	Visitors VisitorConfig  `yaml:"visitors"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
	GinMode string `yaml:"gin_mode"`
}

// APIConfig points at the external services the app consumes
type APIConfig struct {
	RestaurantBaseURL string        `yaml:"restaurant_base_url"`
	IPGeoBaseURL      string        `yaml:"ip_geo_base_url"`
	GeocodeBaseURL    string        `yaml:"geocode_base_url"`
	UserAgent         string        `yaml:"user_agent"`
	Timeout           time.Duration `yaml:"timeout"`
}

// LocationConfig controls the final fallback of the location chain
type LocationConfig struct {
	DefaultLat     float64       `yaml:"default_lat"`
	DefaultLon     float64       `yaml:"default_lon"`
	UnknownPlace   string        `yaml:"unknown_place"`
	GeocodeTimeout time.Duration `yaml:"geocode_timeout"`
}

type AuthConfig struct {
	DatabasePath string        `yaml:"database_path"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	TokenCookie  string        `yaml:"token_cookie"`
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
}

type VisitorConfig struct {
	Cookie      string        `yaml:"cookie"`
	IdleTTL     time.Duration `yaml:"idle_ttl"`
	JanitorTick time.Duration `yaml:"janitor_tick"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file or env is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address: ":8080",
			GinMode: "debug",
		},
		APIs: APIConfig{
			RestaurantBaseURL: "https://larica-backend.onrender.com",
			IPGeoBaseURL:      "https://ipapi.co",
			GeocodeBaseURL:    "https://nominatim.openstreetmap.org",
			UserAgent:         "larica/1.0",
			Timeout:           10 * time.Second,
		},
		Location: LocationConfig{
			DefaultLat:     40.640506,
			DefaultLon:     -8.653783,
			UnknownPlace:   "Unknown",
			GeocodeTimeout: 3 * time.Second,
		},
		Auth: AuthConfig{
			DatabasePath: "larica.db",
			JWTSecret:    "larica_dev_secret_change_me",
			TokenTTL:     24 * time.Hour,
			TokenCookie:  "larica_token",
			ReadyTimeout: 2 * time.Second,
		},
		Visitors: VisitorConfig{
			Cookie:      "larica_sid",
			IdleTTL:     30 * time.Minute,
			JanitorTick: time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a file (optional) and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func applyEnvOverrides(cfg *Config) error {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}
	cfg.Server.Address = getEnv("LARICA_ADDR", cfg.Server.Address)
	cfg.Server.GinMode = getEnv("GIN_MODE", cfg.Server.GinMode)

	cfg.APIs.RestaurantBaseURL = getEnv("LARICA_RESTAURANT_API", cfg.APIs.RestaurantBaseURL)
	cfg.APIs.IPGeoBaseURL = getEnv("LARICA_IPGEO_API", cfg.APIs.IPGeoBaseURL)
	cfg.APIs.GeocodeBaseURL = getEnv("LARICA_GEOCODE_API", cfg.APIs.GeocodeBaseURL)

	cfg.Auth.DatabasePath = getEnv("LARICA_DB_PATH", cfg.Auth.DatabasePath)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Logging.Level = getEnv("LARICA_LOG_LEVEL", cfg.Logging.Level)

	for key, dst := range map[string]*float64{
		"LARICA_DEFAULT_LAT": &cfg.Location.DefaultLat,
		"LARICA_DEFAULT_LON": &cfg.Location.DefaultLon,
	} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = f
	}

	if v := os.Getenv("LARICA_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LARICA_TOKEN_TTL %q: %w", v, err)
		}
		cfg.Auth.TokenTTL = d
	}
	return nil
}

// Validate checks that required values are present and sane
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.gin_mode %q must be debug, release or test", c.Server.GinMode))
	}
	if c.APIs.RestaurantBaseURL == "" {
		errs = append(errs, errors.New("apis.restaurant_base_url is required"))
	}
	if c.APIs.Timeout <= 0 {
		errs = append(errs, errors.New("apis.timeout must be positive"))
	}
	if c.Location.DefaultLat < -90 || c.Location.DefaultLat > 90 {
		errs = append(errs, fmt.Errorf("location.default_lat %v out of range", c.Location.DefaultLat))
	}
	if c.Location.DefaultLon < -180 || c.Location.DefaultLon > 180 {
		errs = append(errs, fmt.Errorf("location.default_lon %v out of range", c.Location.DefaultLon))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 characters"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Auth.ReadyTimeout <= 0 {
		errs = append(errs, errors.New("auth.ready_timeout must be positive"))
	}
	if c.Auth.TokenCookie == "" || c.Visitors.Cookie == "" {
		errs = append(errs, errors.New("cookie names are required"))
	}
	if c.Visitors.IdleTTL <= 0 || c.Visitors.JanitorTick <= 0 {
		errs = append(errs, errors.New("visitors.idle_ttl and visitors.janitor_tick must be positive"))
	}
	return errors.Join(errs...)
}
