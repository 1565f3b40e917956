// Package config provides configuration management for Galley.
// Configurations are loaded from TOML files with XDG-compliant paths.
package config

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Config holds the complete application configuration.
type Config struct {
	Kitchen    KitchenConfig    `toml:"kitchen"`
	Planning   PlanningConfig   `toml:"planning"`
	Forecast   ForecastConfig   `toml:"forecast"`
	Production ProductionConfig `toml:"production"`
	Inventory  InventoryConfig  `toml:"inventory"`
	Display    DisplayConfig    `toml:"display"`
	Logging    LoggingConfig    `toml:"logging"`
	Database   DatabaseConfig   `toml:"database"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// KitchenConfig identifies the operation being planned.
type KitchenConfig struct {
	Name        string `toml:"name"`
	DefaultSite string `toml:"default_site"`
	Timezone    string `toml:"timezone"`
}

// PlanningConfig controls the planning run.
type PlanningConfig struct {
	HorizonDays   int  `toml:"horizon_days"`
	Workers       int  `toml:"workers"`
	ApplyIssuance bool `toml:"apply_issuance"`
	HistoryDays   int  `toml:"history_days"`
}

// ForecastConfig tunes census and item forecasting.
type ForecastConfig struct {
	Alpha                   float64 `toml:"alpha"`
	FirstPositionMultiplier float64 `toml:"first_position_multiplier"`
	CooldownDays            int     `toml:"cooldown_days"`
	RecencyPenalty          float64 `toml:"recency_penalty"`
	ZScore                  float64 `toml:"z_score"`
	DefaultBaseRate         float64 `toml:"default_base_rate"`
}

// ProductionConfig controls schedule generation.
type ProductionConfig struct {
	BufferMinutes int `toml:"buffer_minutes"`
}

// InventoryConfig controls replenishment and expiration checks.
type InventoryConfig struct {
	AlertWindowDays int     `toml:"alert_window_days"`
	ServiceLevel    float64 `toml:"service_level"`
	UsageWindowDays int     `toml:"usage_window_days"`
}

// DisplayConfig controls TUI appearance.
type DisplayConfig struct {
	Theme      Theme  `toml:"theme"`
	DateFormat string `toml:"date_format"`
	TimeFormat string `toml:"time_format"`
}

// Theme selects the terminal color palette.
type Theme string

const (
	ThemeLine   Theme = "line"
	ThemePastry Theme = "pastry"
	ThemePlain  Theme = "plain"
)

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level LogLevel `toml:"level"`
	File  string   `toml:"file"`
}

// LogLevel defines logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// DatabaseConfig controls SQLite database settings.
type DatabaseConfig struct {
	Path                string `toml:"path"`
	BackupIntervalHours int    `toml:"backup_interval_hours"`
	BackupRetentionDays int    `toml:"backup_retention_days"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
}

// Validate checks every section and reports all problems together.
func (c *Config) Validate() error {
	var errs []error

	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"kitchen", &c.Kitchen},
		{"planning", &c.Planning},
		{"forecast", &c.Forecast},
		{"production", &c.Production},
		{"inventory", &c.Inventory},
		{"display", &c.Display},
		{"logging", &c.Logging},
		{"database", &c.Database},
		{"metrics", &c.Metrics},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}

	return errors.Join(errs...)
}

// Validate checks the kitchen identity.
func (k *KitchenConfig) Validate() error {
	var errs []error
	if k.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if k.Timezone != "" {
		if _, err := time.LoadLocation(k.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("invalid timezone: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks the planning run settings.
func (p *PlanningConfig) Validate() error {
	var errs []error
	if p.HorizonDays < 1 || p.HorizonDays > 366 {
		errs = append(errs, errors.New("horizon_days must be between 1 and 366"))
	}
	if p.Workers < 1 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if p.HistoryDays < 0 {
		errs = append(errs, errors.New("history_days must be non-negative"))
	}
	return errors.Join(errs...)
}

// Validate checks forecast tuning.
func (f *ForecastConfig) Validate() error {
	var errs []error
	if f.Alpha <= 0 || f.Alpha > 1 {
		errs = append(errs, errors.New("alpha must be in (0, 1]"))
	}
	if f.FirstPositionMultiplier <= 0 {
		errs = append(errs, errors.New("first_position_multiplier must be positive"))
	}
	if f.CooldownDays < 0 {
		errs = append(errs, errors.New("cooldown_days must be non-negative"))
	}
	if f.RecencyPenalty <= 0 || f.RecencyPenalty > 1 {
		errs = append(errs, errors.New("recency_penalty must be in (0, 1]"))
	}
	if f.ZScore <= 0 {
		errs = append(errs, errors.New("z_score must be positive"))
	}
	if f.DefaultBaseRate < 0 || f.DefaultBaseRate > 1 {
		errs = append(errs, errors.New("default_base_rate must be between 0 and 1"))
	}
	return errors.Join(errs...)
}

// Validate checks schedule settings.
func (p *ProductionConfig) Validate() error {
	if p.BufferMinutes < 0 {
		return errors.New("buffer_minutes must be non-negative")
	}
	return nil
}

// Validate checks replenishment settings.
func (i *InventoryConfig) Validate() error {
	var errs []error
	if i.AlertWindowDays < 0 {
		errs = append(errs, errors.New("alert_window_days must be non-negative"))
	}
	if i.ServiceLevel <= 0 || i.ServiceLevel >= 1 {
		errs = append(errs, errors.New("service_level must be in (0, 1)"))
	}
	if i.UsageWindowDays < 1 {
		errs = append(errs, errors.New("usage_window_days must be positive"))
	}
	return errors.Join(errs...)
}

// Validate checks the display configuration.
func (d *DisplayConfig) Validate() error {
	switch d.Theme {
	case "", ThemeLine, ThemePastry, ThemePlain:
		return nil
	}
	return fmt.Errorf("invalid theme: %s", d.Theme)
}

// Validate checks the logging configuration.
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "", LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	}
	return fmt.Errorf("invalid log level: %s", l.Level)
}

// Validate checks the database configuration.
func (d *DatabaseConfig) Validate() error {
	var errs []error

	if d.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}

	if d.BackupIntervalHours < 0 {
		errs = append(errs, errors.New("backup_interval_hours must be non-negative"))
	}

	if d.BackupRetentionDays < 0 {
		errs = append(errs, errors.New("backup_retention_days must be non-negative"))
	}

	return errors.Join(errs...)
}

// Validate checks the metrics endpoint.
func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(m.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen_addr: %w", err)
	}
	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Kitchen: KitchenConfig{
			Name:        "Galley Kitchen",
			DefaultSite: "main",
			Timezone:    "UTC",
		},
		Planning: PlanningConfig{
			HorizonDays:   7,
			Workers:       4,
			ApplyIssuance: false,
			HistoryDays:   56,
		},
		Forecast: ForecastConfig{
			Alpha:                   0.3,
			FirstPositionMultiplier: 1.15,
			CooldownDays:            7,
			RecencyPenalty:          0.85,
			ZScore:                  1.96,
			DefaultBaseRate:         1.0,
		},
		Production: ProductionConfig{
			BufferMinutes: 15,
		},
		Inventory: InventoryConfig{
			AlertWindowDays: 7,
			ServiceLevel:    0.95,
			UsageWindowDays: 28,
		},
		Display: DisplayConfig{
			Theme:      ThemeLine,
			DateFormat: "Mon Jan 2",
			TimeFormat: "15:04",
		},
		Logging: LoggingConfig{
			Level: LogLevelInfo,
			File:  "logs/galley.log",
		},
		Database: DatabaseConfig{
			Path:                "galley.db",
			BackupIntervalHours: 24,
			BackupRetentionDays: 14,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9464",
		},
	}
}

// Location returns the kitchen's time zone, UTC when unset.
func (k *KitchenConfig) Location() *time.Location {
	if k.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(k.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
