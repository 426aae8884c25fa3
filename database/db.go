package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/resilience"
)

// DB is an open GORM handle plus the pool it owns.
type DB struct {
	GormDB *gorm.DB

	sql       *sql.DB
	cfg       Config
	log       *logger.Logger
	closeOnce sync.Once
	closeErr  error
}

// Dialector returns the gorm dialector for cfg.Driver.
func Dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return sqlite.Open(cfg.DSN), nil
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// New connects with linear backoff, up to cfg.MaxRetries attempts, and
// gives up early when ctx is cancelled.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Get("database")
	}
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		Logger:         newGormLogger(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	retry := resilience.RetryConfig{
		MaxAttempts:    cfg.MaxRetries,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  1.5,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.Warn("Database not reachable, retrying", logger.Fields(
				"attempt", attempt, "backoff", wait.String(), logger.FieldError, err.Error(),
			))
		},
	}
	attempts := 0
	gdb, err := resilience.Retry(ctx, retry, func(ctx context.Context) (*gorm.DB, error) {
		attempts++
		return open(ctx, dialector, gormCfg)
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s after %d attempt(s): %w", cfg.Driver, attempts, err)
	}

	pool, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	log.Info("Database connected", logger.Fields("driver", cfg.Driver, "attempts", attempts))
	return &DB{GormDB: gdb, sql: pool, cfg: cfg, log: log}, nil
}

func open(ctx context.Context, d gorm.Dialector, cfg *gorm.Config) (*gorm.DB, error) {
	gdb, err := gorm.Open(d, cfg)
	if err != nil {
		return nil, err
	}
	pool, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return gdb, nil
}

// Config returns the configuration the connection was opened with.
func (d *DB) Config() Config { return d.cfg }

// Close closes the pool once.
func (d *DB) Close() error {
	d.closeOnce.Do(func() { d.closeErr = d.sql.Close() })
	return d.closeErr
}

// WithContext returns a session bound to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate creates or alters the tables for models.
func (d *DB) AutoMigrate(models ...interface{}) error {
	for _, m := range models {
		if err := d.GormDB.AutoMigrate(m); err != nil {
			return fmt.Errorf("auto-migrate %T: %w", m, err)
		}
	}
	d.log.Debug("Schema up to date", logger.Fields("models", len(models)))
	return nil
}

// TransactionFunc runs inside a transaction.
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction commits when fn returns nil and rolls back otherwise,
// including when fn panics.
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	return d.GormDB.WithContext(ctx).Transaction(fn)
}

// PoolStatus is a snapshot of the connection pool taken by CheckHealth.
type PoolStatus struct {
	Latency time.Duration
	sql.DBStats
}

// CheckHealth pings the database and returns pool statistics.
func (d *DB) CheckHealth(ctx context.Context) (PoolStatus, error) {
	start := time.Now()
	if err := d.sql.PingContext(ctx); err != nil {
		return PoolStatus{Latency: time.Since(start)}, err
	}
	return PoolStatus{Latency: time.Since(start), DBStats: d.sql.Stats()}, nil
}
