package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowQuery = 200 * time.Millisecond
	defaultMaxSQLLen = 2048
)

// GormLogger routes GORM output through zap. SQL lines carry the request,
// tenant and user of the calling context.
type GormLogger struct {
	log       *zap.Logger
	level     gormlogger.LogLevel
	slowQuery time.Duration
	maxSQLLen int
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a query is logged as slow.
// Zero disables slow query reporting.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowQuery = threshold
	}
}

// WithMaxSQLLength truncates logged statements; bulk cart and order item
// inserts can get long. Zero keeps full statements.
func WithMaxSQLLength(n int) GormLoggerOption {
	return func(l *GormLogger) {
		l.maxSQLLen = n
	}
}

// NewGormLogger creates a GORM logger backed by zap
func NewGormLogger(log *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		log:       log.Named("gorm"),
		level:     level,
		slowQuery: defaultSlowQuery,
		maxSQLLen: defaultMaxSQLLen,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.log.With(sqlContext(ctx)...).Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.log.With(sqlContext(ctx)...).Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.log.With(sqlContext(ctx)...).Sugar().Errorf(msg, data...)
	}
}

// Trace logs one executed statement. Record-not-found is never an error
// here; repositories translate it to a domain NotFound.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if err != nil && errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	slow := l.slowQuery > 0 && elapsed > l.slowQuery

	var msg string
	switch {
	case err != nil && l.level >= gormlogger.Error:
		msg = "SQL error"
	case slow && l.level >= gormlogger.Warn:
		msg = "Slow SQL"
	case l.level >= gormlogger.Info:
		msg = "SQL query"
	default:
		return
	}

	sql, rows := fc()
	if l.maxSQLLen > 0 && len(sql) > l.maxSQLLen {
		sql = sql[:l.maxSQLLen] + "..."
	}
	fields := append(sqlContext(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)

	switch msg {
	case "SQL error":
		l.log.Error(msg, append(fields, zap.Error(err))...)
	case "Slow SQL":
		l.log.Warn(msg, append(fields, zap.Duration("threshold", l.slowQuery))...)
	default:
		l.log.Debug(msg, fields...)
	}
}

func sqlContext(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetTenantID(ctx); id != "" {
		fields = append(fields, zap.String("tenant_id", id))
	}
	if id := GetUserID(ctx); id != "" {
		fields = append(fields, zap.String("user_id", id))
	}
	return fields
}

// MapGormLogLevel maps the database.log_level setting to a GORM level;
// unknown values fall back to warn
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
