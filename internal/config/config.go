package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"gymschedule/internal/slots"
)

const (
	DefaultPath      = "configs/timetable.yaml"
	BackendWorkbook  = "workbook"
	BackendGoogle    = "google"
	defaultCapacity  = 10
	defaultRateLimit = 60
)

type Config struct {
	Timetable struct {
		Hours         []string `yaml:"hours"`
		ClosedWeekday int      `yaml:"closed_weekday"`
		Capacity      int      `yaml:"capacity"`
		Timezone      string   `yaml:"timezone"`
	} `yaml:"timetable"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Storage struct {
		Backend  string `yaml:"backend"`
		Workbook struct {
			Path string `yaml:"path"`
		} `yaml:"workbook"`
		Google struct {
			SpreadsheetID     string `yaml:"spreadsheet_id"`
			CredentialsFile   string `yaml:"credentials_file"`
			RequestsPerMinute int    `yaml:"requests_per_minute"`
		} `yaml:"google"`
	} `yaml:"storage"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Metrics struct {
		Textfile       string `yaml:"textfile"`
		PushgatewayURL string `yaml:"pushgateway_url"`
	} `yaml:"metrics"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadEnv reads KEY=VALUE pairs from the given files into the environment.
// Missing files are ignored; variables already set win.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Timetable.Hours) == 0 {
		c.Timetable.Hours = append([]string(nil), slots.DefaultTrainingHours...)
	}
	if c.Timetable.Capacity <= 0 {
		c.Timetable.Capacity = defaultCapacity
	}
	if c.Timetable.Timezone == "" {
		c.Timetable.Timezone = "Local"
	}
	if c.Database.Path == "" {
		c.Database.Path = ":memory:"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendWorkbook
	}
	if c.Storage.Workbook.Path == "" {
		c.Storage.Workbook.Path = "data/timetable.xlsx"
	}
	if c.Storage.Google.RequestsPerMinute <= 0 {
		c.Storage.Google.RequestsPerMinute = defaultRateLimit
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	if _, err := c.Schedule(); err != nil {
		return fmt.Errorf("timetable: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timetable.timezone: %w", err)
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	switch c.Storage.Backend {
	case BackendWorkbook:
	case BackendGoogle:
		if c.Storage.Google.SpreadsheetID == "" {
			return errors.New("storage.google.spreadsheet_id is required")
		}
		if c.Storage.Google.CredentialsFile == "" {
			return errors.New("storage.google.credentials_file is required")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	return nil
}

// Schedule builds the training hour schedule.
func (c *Config) Schedule() (*slots.Schedule, error) {
	return slots.NewSchedule(c.Timetable.Hours, c.Timetable.ClosedWeekday)
}

// Location resolves the timezone the gym's clock runs in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timetable.Timezone)
}

func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// RedisEnabled reports whether the backup journal lives in Redis.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Address != ""
}

// BackupRetention returns how long snapshots are kept; zero keeps them forever.
func (c *Config) BackupRetention() time.Duration {
	if c.Backup.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}
