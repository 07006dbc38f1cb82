// logger.go wires the datastore package and GORM into the structured logger.
package datastore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/logging"
)

var (
	datastoreLogger   *slog.Logger
	datastoreLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	datastoreLevelVar.Set(slog.LevelInfo)

	datastoreLogger, _, err = logging.NewFileLogger("logs/datastore.log", "datastore", datastoreLevelVar)
	if err != nil {
		logging.Error("Failed to initialize datastore file logger", "error", err)
		datastoreLogger = logging.ForService("datastore")
		if datastoreLogger == nil {
			fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: datastoreLevelVar})
			datastoreLogger = slog.New(fbHandler).With("service", "datastore")
		}
	}
}

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger adapts the package logger to GORM's logger interface.
type gormLogger struct {
	level gormlogger.LogLevel
}

// createGormLogger returns the GORM logger used by both stores. Warn level
// keeps routine query traffic out of the log while slow queries and failures
// still surface.
func createGormLogger() gormlogger.Interface {
	return &gormLogger{level: gormlogger.Warn}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		datastoreLogger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		datastoreLogger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		datastoreLogger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		datastoreLogger.ErrorContext(ctx, "Query failed",
			"error", err, "sql", sql, "rows", rows, "duration", elapsed)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		datastoreLogger.WarnContext(ctx, "Slow query",
			"sql", sql, "rows", rows, "duration", elapsed, "threshold", slowQueryThreshold)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		datastoreLogger.DebugContext(ctx, "Query executed",
			"sql", sql, "rows", rows, "duration", elapsed)
	}
}
