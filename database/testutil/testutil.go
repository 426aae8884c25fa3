// Package testutil opens throwaway in-memory SQLite databases for tests of
// the GORM-backed stores.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fernandomesquita/stenopro/database"
	"github.com/fernandomesquita/stenopro/logger"
)

var seq atomic.Int64

// Config returns a database config for a private in-memory SQLite database.
// A single pooled connection keeps every query on the same memory database.
func Config(name string) database.Config {
	return database.Config{
		Driver:          database.DriverSQLite,
		DSN:             fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1)),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Hour,
		MaxRetries:      1,
		LogLevel:        "silent",
	}
}

// Open returns a migrated in-memory database closed at test cleanup.
func Open(t testing.TB, models ...interface{}) *database.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(context.Background(), Config(name), logger.Nop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("migrate test database: %v", err)
		}
	}
	return db
}
