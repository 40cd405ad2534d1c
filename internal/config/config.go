// Package config loads service settings from FIELDSERVICE_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/example/fieldservice-scheduler/internal/scheduler"
)

// Prefix is prepended to every variable name.
const Prefix = "FIELDSERVICE"

// Case store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort        int    `envconfig:"HTTP_PORT" default:"8080"`
	SQLiteDSN       string `envconfig:"SQLITE_DSN" default:"scheduling.db"`
	CaseStoreDriver string `envconfig:"CASE_STORE_DRIVER" default:"memory"`
	PostgresDSN     string `envconfig:"POSTGRES_DSN"`
	Timezone        string `envconfig:"TIMEZONE" default:"UTC"`

	// TravelBuffer and SlotDuration are independent on purpose.
	TravelBuffer       time.Duration `envconfig:"TRAVEL_BUFFER" default:"60m"`
	SlotDuration       time.Duration `envconfig:"SLOT_DURATION" default:"60m"`
	BookingHorizonDays int           `envconfig:"BOOKING_HORIZON_DAYS" default:"14"`
	DayStartHour       int           `envconfig:"DAY_START_HOUR" default:"8"`
	DayEndHour         int           `envconfig:"DAY_END_HOUR" default:"18"`

	// ReconcileLookback is how far into the past reconciliation loads
	// appointments. Zero loads the whole calendar. Upcoming rows are
	// always loaded.
	ReconcileLookback time.Duration `envconfig:"RECONCILE_LOOKBACK" default:"720h"`
	StrictSlotClaims  bool          `envconfig:"STRICT_SLOT_CLAIMS" default:"false"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	LogLevel           string   `envconfig:"LOG_LEVEL" default:"info"`

	Location *time.Location `ignored:"true"`
}

// Load parses configuration values from the current process environment
// and reports every missing or invalid variable in one error.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		var parseErr *envconfig.ParseError
		if errors.As(err, &parseErr) {
			return Config{}, fmt.Errorf("invalid environment variables: %s", parseErr.KeyName)
		}
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)
	name := func(key string) string { return Prefix + "_" + key }

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, name("HTTP_PORT"))
	}
	if strings.TrimSpace(cfg.SQLiteDSN) == "" {
		missing = append(missing, name("SQLITE_DSN"))
	}

	switch cfg.CaseStoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			missing = append(missing, name("POSTGRES_DSN"))
		}
	default:
		invalid = append(invalid, name("CASE_STORE_DRIVER"))
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		invalid = append(invalid, name("TIMEZONE"))
	}
	cfg.Location = loc

	if cfg.TravelBuffer <= 0 {
		invalid = append(invalid, name("TRAVEL_BUFFER"))
	}
	if cfg.SlotDuration < scheduler.MinSlotDuration {
		invalid = append(invalid, name("SLOT_DURATION"))
	}
	if cfg.BookingHorizonDays <= 0 || cfg.BookingHorizonDays > scheduler.MaxHorizonDays {
		invalid = append(invalid, name("BOOKING_HORIZON_DAYS"))
	}
	if cfg.DayStartHour < 0 || cfg.DayStartHour > 23 {
		invalid = append(invalid, name("DAY_START_HOUR"))
	}
	if cfg.DayEndHour < 1 || cfg.DayEndHour > 24 || cfg.DayEndHour <= cfg.DayStartHour {
		invalid = append(invalid, name("DAY_END_HOUR"))
	}
	if cfg.ReconcileLookback < 0 {
		invalid = append(invalid, name("RECONCILE_LOOKBACK"))
	}
	if _, err := cfg.Level(); err != nil {
		invalid = append(invalid, name("LOG_LEVEL"))
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing required environment variables: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		problems = append(problems, "invalid environment variables: "+strings.Join(invalid, ", "))
	}
	if len(problems) > 0 {
		return Config{}, errors.New(strings.Join(problems, "; "))
	}

	return cfg, nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(c.LogLevel) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
