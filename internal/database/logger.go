package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// QueryLogger routes GORM output to slog. Failed statements log at error,
// statements slower than the threshold at warn, and everything else only
// when the level is raised to logger.Info.
type QueryLogger struct {
	log       *slog.Logger
	level     logger.LogLevel
	threshold time.Duration
}

// NewQueryLogger returns a QueryLogger at warn level.
func NewQueryLogger(l *slog.Logger, slowThreshold time.Duration) *QueryLogger {
	return &QueryLogger{log: l, level: logger.Warn, threshold: slowThreshold}
}

func (q *QueryLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *q
	cp.level = level
	return &cp
}

func (q *QueryLogger) Info(ctx context.Context, msg string, args ...any) {
	q.printf(ctx, logger.Info, slog.LevelInfo, msg, args)
}

func (q *QueryLogger) Warn(ctx context.Context, msg string, args ...any) {
	q.printf(ctx, logger.Warn, slog.LevelWarn, msg, args)
}

func (q *QueryLogger) Error(ctx context.Context, msg string, args ...any) {
	q.printf(ctx, logger.Error, slog.LevelError, msg, args)
}

func (q *QueryLogger) printf(ctx context.Context, min logger.LogLevel, lvl slog.Level, msg string, args []any) {
	if q.level >= min {
		q.log.Log(ctx, lvl, fmt.Sprintf(msg, args...))
	}
}

// Trace is called by GORM after every statement.
func (q *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		lvl slog.Level
		msg string
	)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= logger.Error:
		lvl, msg = slog.LevelError, "query failed"
	case q.threshold > 0 && elapsed > q.threshold && q.level >= logger.Warn:
		lvl, msg = slog.LevelWarn, "slow query"
	case q.level >= logger.Info:
		lvl, msg = slog.LevelInfo, "query"
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
	if lvl == slog.LevelError {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	q.log.LogAttrs(ctx, lvl, msg, attrs...)
}
