package database

import (
	"errors"
	"fmt"
	"time"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds database connection configuration.
type Config struct {
	// Driver selects the dialect: "sqlite" (default) or "postgres".
	Driver string `yaml:"driver" mapstructure:"driver"`
	// DSN is the connection string, a file path for sqlite.
	DSN string `yaml:"dsn" mapstructure:"dsn"`

	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`

	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	// AutoMigrate applies the embedded SQL migrations on start for postgres.
	// SQLite schemas are always maintained with GORM auto-migration.
	AutoMigrate bool `yaml:"auto_migrate" mapstructure:"auto_migrate"`

	// Queries slower than SlowQueryThreshold are logged at warn.
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
	// LogLevel is the gorm log level: silent, error, warn or info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

func positive[T int | time.Duration](v *T, def T) {
	if *v <= 0 {
		*v = def
	}
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.DSN == "" && c.Driver == DriverSQLite {
		c.DSN = "stenopro.db"
	}
	positive(&c.MaxOpenConns, 25)
	positive(&c.MaxIdleConns, 5)
	positive(&c.ConnMaxLifetime, time.Hour)
	positive(&c.ConnMaxIdleTime, 5*time.Minute)
	positive(&c.MaxRetries, 5)
	positive(&c.SlowQueryThreshold, 200*time.Millisecond)
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Driver != DriverSQLite && c.Driver != DriverPostgres {
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("database.dsn is required")
	}
	switch {
	case c.MaxOpenConns <= 0:
		return errors.New("max_open_conns must be > 0")
	case c.MaxIdleConns <= 0:
		return errors.New("max_idle_conns must be > 0")
	case c.MaxIdleConns > c.MaxOpenConns:
		return fmt.Errorf("max_idle_conns (%d) must be <= max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	case c.ConnMaxLifetime < 0:
		return fmt.Errorf("conn_max_lifetime must not be negative, got %s", c.ConnMaxLifetime)
	case c.ConnMaxIdleTime < 0:
		return fmt.Errorf("conn_max_idle_time must not be negative, got %s", c.ConnMaxIdleTime)
	case c.SlowQueryThreshold <= 0:
		return fmt.Errorf("slow_query_threshold must be > 0, got %s", c.SlowQueryThreshold)
	case c.MaxRetries <= 0:
		return errors.New("max_retries must be > 0")
	}
	return nil
}
