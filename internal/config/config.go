package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the application configuration
type Config struct {
	DataDir  string `env:"RSVP_DATA_DIR" envDefault:"data"`
	Timezone string `env:"RSVP_TIMEZONE" envDefault:"Asia/Jerusalem"`

	BatchSize         int           `env:"RSVP_BATCH_SIZE" envDefault:"10"`
	MessageDelay      time.Duration `env:"RSVP_MESSAGE_DELAY" envDefault:"8s"`
	CampaignInterval  time.Duration `env:"RSVP_CAMPAIGN_INTERVAL" envDefault:"1h"`
	CampaignStartHour int           `env:"RSVP_CAMPAIGN_START_HOUR" envDefault:"9"`
	CampaignEndHour   int           `env:"RSVP_CAMPAIGN_END_HOUR" envDefault:"20"`
	FollowUpInterval  time.Duration `env:"RSVP_FOLLOWUP_INTERVAL" envDefault:"1h"`
	FollowUpHour      int           `env:"RSVP_FOLLOWUP_HOUR" envDefault:"12"`

	SheetTimeout    time.Duration `env:"RSVP_SHEET_TIMEOUT" envDefault:"10s"`
	SheetRetries    uint          `env:"RSVP_SHEET_RETRIES" envDefault:"3"`
	SheetRetryDelay time.Duration `env:"RSVP_SHEET_RETRY_DELAY" envDefault:"2s"`
	CacheTTL        time.Duration `env:"RSVP_CACHE_TTL" envDefault:"5m"`

	AdminNumbers []string `env:"RSVP_ADMIN_NUMBERS" envSeparator:","`
	SecretKey    string   `env:"RSVP_SECRET_KEY"`

	HTTPAddr  string `env:"RSVP_HTTP_ADDR" envDefault:":8080"`
	LogLevel  string `env:"RSVP_LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"RSVP_LOG_PRETTY" envDefault:"false"`
}

// LoadConfig loads configuration from environment variables or defaults.
// A .env file in the working directory is read first when present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("RSVP_BATCH_SIZE must be positive, got %d", c.BatchSize))
	}
	if c.CampaignStartHour < 0 || c.CampaignEndHour > 23 || c.CampaignStartHour > c.CampaignEndHour {
		errs = append(errs, fmt.Errorf("campaign hours %d-%d are not a valid range", c.CampaignStartHour, c.CampaignEndHour))
	}
	if c.FollowUpHour < 0 || c.FollowUpHour > 23 {
		errs = append(errs, fmt.Errorf("RSVP_FOLLOWUP_HOUR must be 0-23, got %d", c.FollowUpHour))
	}
	if c.CampaignInterval <= 0 || c.FollowUpInterval <= 0 {
		errs = append(errs, errors.New("loop intervals must be positive"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("RSVP_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) TenantsPath() string     { return filepath.Join(c.DataDir, "customers.json") }
func (c *Config) CredentialsPath() string { return filepath.Join(c.DataDir, "credentials.json") }
func (c *Config) GuestMapPath() string    { return filepath.Join(c.DataDir, "guest_map.json") }
func (c *Config) FollowUpsPath() string   { return filepath.Join(c.DataDir, "followups.json") }

// NewLogger builds the root logger. Components derive their own with a
// "component" field.
func (c *Config) NewLogger(out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if c.LogPretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
