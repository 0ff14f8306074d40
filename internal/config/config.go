// Package config loads runtime configuration from ledgerflow.config.json and
// the environment. Secrets (the database URL, AWS credentials) stay in the
// environment; the file only names which variables to read.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Database Database `json:"database" mapstructure:"database"`
	Source   Source   `json:"source" mapstructure:"source"`
	Pipeline Pipeline `json:"pipeline" mapstructure:"pipeline"`
	Schedule Schedule `json:"schedule" mapstructure:"schedule"`
	Log      Log      `json:"log" mapstructure:"log"`
}

type Database struct {
	URLEnv string `json:"url_env" mapstructure:"url_env"`
}

// Source locates the CSV exports in object storage. Endpoint and PathStyle
// exist for S3-compatible backends such as MinIO.
type Source struct {
	Region    string            `json:"region" mapstructure:"region"`
	Bucket    string            `json:"bucket" mapstructure:"bucket"`
	Endpoint  string            `json:"endpoint,omitempty" mapstructure:"endpoint"`
	PathStyle bool              `json:"path_style,omitempty" mapstructure:"path_style"`
	Objects   map[string]string `json:"objects" mapstructure:"objects"`
}

type Pipeline struct {
	Tolerance float64 `json:"tolerance" mapstructure:"tolerance"`
}

type Schedule struct {
	Interval   string `json:"interval" mapstructure:"interval"`
	RunOnStart bool   `json:"run_on_start" mapstructure:"run_on_start"`
}

type Log struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

func Load() (*Config, error) {
	var cfg Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set defaults
	if cfg.Database.URLEnv == "" {
		cfg.Database.URLEnv = "DATABASE_URL"
	}
	if cfg.Source.Region == "" {
		cfg.Source.Region = "us-east-1"
	}
	if len(cfg.Source.Objects) == 0 {
		cfg.Source.Objects = map[string]string{
			"account":     "accounts.csv",
			"transaction": "transactions.csv",
		}
	}
	if cfg.Pipeline.Tolerance == 0 {
		cfg.Pipeline.Tolerance = 0.01
	}
	if cfg.Schedule.Interval == "" {
		cfg.Schedule.Interval = "1h"
	}
	if !viper.IsSet("schedule.run_on_start") {
		cfg.Schedule.RunOnStart = true
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	return &cfg, nil
}

func (c *Config) GetDatabaseURL() (string, error) {
	dbURL := os.Getenv(c.Database.URLEnv)
	if dbURL == "" {
		return "", fmt.Errorf("database URL not found in environment variable %s", c.Database.URLEnv)
	}
	return dbURL, nil
}

// ScheduleInterval parses the configured interval.
func (c *Config) ScheduleInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Schedule.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid schedule interval %q: %w", c.Schedule.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("schedule interval must be positive, got %s", c.Schedule.Interval)
	}
	return d, nil
}

func (c *Config) Validate() error {
	if c.Source.Bucket == "" {
		return fmt.Errorf("source.bucket cannot be empty")
	}
	if len(c.Source.Objects) == 0 {
		return fmt.Errorf("source.objects cannot be empty")
	}
	for entityName, key := range c.Source.Objects {
		if key == "" {
			return fmt.Errorf("source.objects.%s cannot be empty", entityName)
		}
	}
	if c.Pipeline.Tolerance < 0 {
		return fmt.Errorf("pipeline.tolerance cannot be negative")
	}
	if _, err := c.ScheduleInterval(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("unsupported log level: %s", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported log format: %s. Supported formats: [text json]", c.Log.Format)
	}
	return nil
}

// NewLogger builds the process logger from the log section.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if c.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
