package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/fernandomesquita/stenopro/logger"
)

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

// parseLogLevel maps database.log_level to a gorm level, defaulting to info.
func parseLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[strings.ToLower(level)]; ok {
		return l
	}
	return gormlogger.Info
}

// gormLog routes gorm's logging to the service logger. Statements are
// logged at debug, slow ones at warn and failures at error.
type gormLog struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newGormLogger(log *logger.Logger, slow time.Duration, level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLog{log: log.WithComponent("gorm"), level: level, slow: slow}
}

func (g *gormLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormLog) Info(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Error(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.log.Error(fmt.Sprintf(msg, args...))
	}
}

// Trace skips record-not-found errors; the stores turn those into 404s.
func (g *gormLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !IsNotFoundError(err)
	slow := g.slow > 0 && elapsed > g.slow

	var emit func(string, ...map[string]interface{})
	log := g.log.WithContext(ctx)
	switch {
	case failed && g.level >= gormlogger.Error:
		emit = log.WithError(err).Error
	case failed:
		return
	case slow && g.level >= gormlogger.Warn:
		emit = log.Warn
	case g.level >= gormlogger.Info:
		emit = log.Debug
	default:
		return
	}

	stmt, rows := fc()
	label := "Query"
	if failed {
		label = "Query failed"
	} else if slow {
		label = "Slow query"
	}
	emit(label, logger.Fields("sql", stmt, "rows", rows, logger.FieldDuration, elapsed.Milliseconds()))
}
