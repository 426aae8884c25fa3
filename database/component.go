package database

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandomesquita/stenopro/component"
	"github.com/fernandomesquita/stenopro/logger"
)

// slowPing is the ping latency above which the database reports degraded.
const slowPing = 500 * time.Millisecond

// MigrateFunc applies schema migrations to an open connection.
type MigrateFunc func(ctx context.Context, db *DB) error

// Component opens the database on Start and brings the schema up to date:
// GORM auto-migration on sqlite, versioned SQL migrations on postgres when
// auto_migrate is set.
type Component struct {
	cfg     Config
	log     *logger.Logger
	models  []interface{}
	migrate MigrateFunc
	db      *DB
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// WithAutoMigrate registers the models migrated on sqlite.
func (c *Component) WithAutoMigrate(models ...interface{}) *Component {
	c.models = append(c.models, models...)
	return c
}

// WithMigrations sets the postgres migration.
func (c *Component) WithMigrations(fn MigrateFunc) *Component {
	c.migrate = fn
	return c
}

// DB is nil before Start.
func (c *Component) DB() *DB { return c.db }

func (c *Component) Name() string { return "database" }

func (c *Component) Start(ctx context.Context) error {
	db, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	if err := c.upgrade(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	c.db = db
	return nil
}

func (c *Component) upgrade(ctx context.Context, db *DB) error {
	switch c.cfg.Driver {
	case DriverSQLite:
		if len(c.models) == 0 {
			return nil
		}
		return db.AutoMigrate(c.models...)
	case DriverPostgres:
		if !c.cfg.AutoMigrate || c.migrate == nil {
			return nil
		}
		if err := c.migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusUnhealthy}
	if c.db == nil {
		h.Message = "not started"
		return h
	}
	st, err := c.db.CheckHealth(ctx)
	if err != nil {
		h.Message = "ping: " + err.Error()
		return h
	}
	h.Status = component.StatusHealthy
	if st.Latency > slowPing || (st.WaitCount > 0 && st.Idle == 0 && st.InUse >= c.cfg.MaxOpenConns) {
		h.Status = component.StatusDegraded
	}
	h.Message = fmt.Sprintf("open=%d in_use=%d idle=%d ping=%s", st.OpenConnections, st.InUse, st.Idle, st.Latency.Round(time.Millisecond))
	return h
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("driver=%s pool=%d/%d", c.cfg.Driver, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.AutoMigrate {
		details += " auto-migrate=on"
	}
	return component.Description{Name: "Database", Type: "database", Details: details}
}
