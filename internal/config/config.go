package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	GeocoderTable     = "table"
	GeocoderNominatim = "nominatim"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	AdminKey        string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB int64         `mapstructure:"MAX_UPLOAD_MB"`
	DBAutoMigrate   bool          `mapstructure:"DB_AUTO_MIGRATE"`

	Geocoder          string        `mapstructure:"GEOCODER"`
	NominatimURL      string        `mapstructure:"NOMINATIM_URL"`
	GeocoderUserAgent string        `mapstructure:"GEOCODER_USER_AGENT"`
	GeocoderCountry   string        `mapstructure:"GEOCODER_COUNTRY"`
	GeocoderInterval  time.Duration `mapstructure:"GEOCODER_MIN_INTERVAL"`
	CityCoordsPath    string        `mapstructure:"CITY_COORDS_PATH"`
	DistanceBackend   string        `mapstructure:"DISTANCE_BACKEND"`

	AssignmentPreset      string `mapstructure:"ASSIGNMENT_PRESET"`
	AssignmentPresetsFile string `mapstructure:"ASSIGNMENT_PRESETS_FILE"`

	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
	NATSURL        string `mapstructure:"NATS_URL"`
	NATSSubject    string `mapstructure:"NATS_SUBJECT"`
}

func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile reads an optional env file, then lets the process environment override it.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("GEOCODER", GeocoderTable)
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("GEOCODER_USER_AGENT", "householdpro-backend/1.0")
	v.SetDefault("GEOCODER_COUNTRY", "India")
	v.SetDefault("GEOCODER_MIN_INTERVAL", "1s")
	v.SetDefault("CITY_COORDS_PATH", "")
	v.SetDefault("DISTANCE_BACKEND", "geodesic")
	v.SetDefault("ASSIGNMENT_PRESET", "default")
	v.SetDefault("ASSIGNMENT_PRESETS_FILE", "")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT", "householdpro.assignments")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Geocoder = strings.ToLower(strings.TrimSpace(cfg.Geocoder))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Geocoder {
	case GeocoderTable, GeocoderNominatim:
	default:
		return fmt.Errorf("GEOCODER must be %q or %q, got %q", GeocoderTable, GeocoderNominatim, c.Geocoder)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return nil
}
