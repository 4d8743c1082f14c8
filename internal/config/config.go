package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the tracker.
type Config struct {
	HTTPPort       string   `mapstructure:"HTTP_PORT" validate:"required,numeric"`
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`

	LogFile   string `mapstructure:"LOG_FILE" validate:"required"`
	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"oneof=trace debug info warn warning error"`
	LogStdout bool   `mapstructure:"LOG_STDOUT"`

	GoogleMapsAPIKey  string        `mapstructure:"GOOGLE_MAPS_API_KEY"`
	RouteTimeout      time.Duration `mapstructure:"ROUTE_TIMEOUT" validate:"gt=0"`
	SnapTimeout       time.Duration `mapstructure:"SNAP_TIMEOUT" validate:"gt=0"`
	SnapRatePerSecond float64       `mapstructure:"SNAP_RATE_PER_SECOND" validate:"gte=0"`
	SnapEnabled       bool          `mapstructure:"SNAP_ENABLED"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	StatsSchedule string `mapstructure:"STATS_SCHEDULE" validate:"required"`

	DB DBConfig `mapstructure:",squash"`
}

// DBConfig locates the Postgres route cache. An empty host disables it.
type DBConfig struct {
	Host     string `mapstructure:"DB_HOST"`
	Port     string `mapstructure:"DB_PORT" validate:"required_with=Host"`
	User     string `mapstructure:"DB_USER" validate:"required_with=Host"`
	Password string `mapstructure:"DB_PASSWORD"`
	Name     string `mapstructure:"DB_NAME" validate:"required_with=Host"`
	SSLMode  string `mapstructure:"DB_SSLMODE"`
	TimeZone string `mapstructure:"DB_TIMEZONE"`
}

// Enabled reports whether a database was configured.
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// DSN builds the Postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

var defaults = map[string]any{
	"HTTP_PORT":            "8080",
	"ALLOWED_ORIGINS":      "",
	"LOG_FILE":             "./logs/app.log",
	"LOG_LEVEL":            "info",
	"LOG_STDOUT":           true,
	"GOOGLE_MAPS_API_KEY":  "",
	"ROUTE_TIMEOUT":        "5s",
	"SNAP_TIMEOUT":         "2s",
	"SNAP_RATE_PER_SECOND": 10.0,
	"SNAP_ENABLED":         true,
	"JWT_SECRET":           "",
	"STATS_SCHEDULE":       "@every 1m",
	"DB_HOST":              "",
	"DB_PORT":              "5432",
	"DB_USER":              "postgres",
	"DB_PASSWORD":          "password",
	"DB_NAME":              "tracker",
	"DB_SSLMODE":           "disable",
	"DB_TIMEZONE":          "UTC",
}

// Load reads .env (if present), then config.yaml in dir (if present), then
// the environment, and validates the result.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found; relying on environment variables.")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.Load read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load unmarshal: %w", err)
	}
	cfg.AllowedOrigins = splitList(v.GetString("ALLOWED_ORIGINS"))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load validate: %w", err)
	}
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
