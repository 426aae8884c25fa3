package database

import (
	"strings"
	"testing"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Driver != DriverSQLite || cfg.DSN != "stenopro.db" {
		t.Errorf("driver/dsn = %s/%s", cfg.Driver, cfg.DSN)
	}
	if cfg.MaxOpenConns != 25 || cfg.MaxIdleConns != 5 {
		t.Errorf("pool = %d/%d, want 25/5", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != time.Hour || cfg.ConnMaxIdleTime != 5*time.Minute {
		t.Errorf("lifetimes = %s/%s", cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime)
	}
	if cfg.MaxRetries != 5 || cfg.SlowQueryThreshold != 200*time.Millisecond || cfg.LogLevel != "warn" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_ApplyDefaults_PostgresKeepsEmptyDSN(t *testing.T) {
	cfg := Config{Driver: DriverPostgres}
	cfg.ApplyDefaults()
	if cfg.DSN != "" {
		t.Errorf("postgres must not get a sqlite dsn, got %q", cfg.DSN)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "dsn") {
		t.Errorf("expected dsn error, got %v", err)
	}
}

func TestConfig_ApplyDefaults_PreservesExistingValues(t *testing.T) {
	cfg := Config{Driver: DriverPostgres, DSN: "postgres://x", MaxOpenConns: 50, MaxIdleConns: 10, LogLevel: "info"}
	cfg.ApplyDefaults()
	if cfg.MaxOpenConns != 50 || cfg.MaxIdleConns != 10 || cfg.LogLevel != "info" || cfg.DSN != "postgres://x" {
		t.Errorf("existing values overwritten: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		c := Config{DSN: "x.db"}
		c.ApplyDefaults()
		return c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad driver", func(c *Config) { c.Driver = "mysql" }, "database.driver"},
		{"missing dsn", func(c *Config) { c.DSN = "" }, "database.dsn"},
		{"zero open", func(c *Config) { c.MaxOpenConns = 0 }, "max_open_conns"},
		{"zero idle", func(c *Config) { c.MaxIdleConns = 0 }, "max_idle_conns"},
		{"idle above open", func(c *Config) { c.MaxIdleConns = 30 }, "must be <= max_open_conns"},
		{"negative lifetime", func(c *Config) { c.ConnMaxLifetime = -time.Second }, "conn_max_lifetime"},
		{"negative idle time", func(c *Config) { c.ConnMaxIdleTime = -time.Second }, "conn_max_idle_time"},
		{"unlimited idle time", func(c *Config) { c.ConnMaxIdleTime = 0 }, ""},
		{"zero slow threshold", func(c *Config) { c.SlowQueryThreshold = 0 }, "slow_query_threshold"},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, "max_retries"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent": gormlogger.Silent,
		"ERROR":  gormlogger.Error,
		"warn":   gormlogger.Warn,
		"info":   gormlogger.Info,
		"":       gormlogger.Info,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %d, want %d", in, got, want)
		}
	}
}
