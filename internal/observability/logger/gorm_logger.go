package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures the zap backed gorm logger.
type GormLoggerConfig struct {
	Level                gormlogger.LogLevel
	SlowThreshold        time.Duration
	IgnoreRecordNotFound bool
}

func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:         gormlogger.Warn,
		SlowThreshold: 250 * time.Millisecond,
	}
}

// GormLogger writes gorm statements through the request scoped zap logger so
// queries issued inside a lifecycle transition carry its request id and actor.
type GormLogger struct {
	cfg GormLoggerConfig
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) message(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, data []interface{}) {
	if l.cfg.Level < min {
		return
	}
	if len(data) > 0 {
		msg = fmt.Sprintf(msg, data...)
	}
	if ce := FromContext(ctx).Check(level, msg); ce != nil {
		ce.Write(zap.String("component", "db"))
	}
}

// Trace logs failed statements as errors, slow ones as warnings and the rest at debug.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	level, ok := l.traceLevel(time.Since(begin), err)
	if !ok {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	op, table := describeSQL(sql)
	fields := []zap.Field{
		zap.String("component", "db"),
		zap.String("db.operation", op),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.String("sql", strings.TrimSpace(sql)),
	}
	if table != "" {
		fields = append(fields, zap.String("db.table", table))
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	msg := "db.query"
	if level == zapcore.WarnLevel {
		msg = "db.slow_query"
	}
	if ce := FromContext(ctx).Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *GormLogger) traceLevel(elapsed time.Duration, err error) (zapcore.Level, bool) {
	switch {
	case l.cfg.Level <= gormlogger.Silent:
		return 0, false
	case err != nil && l.cfg.Level >= gormlogger.Error:
		if errors.Is(err, gormlogger.ErrRecordNotFound) && l.cfg.IgnoreRecordNotFound {
			return 0, false
		}
		return zapcore.ErrorLevel, true
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold && l.cfg.Level >= gormlogger.Warn:
		return zapcore.WarnLevel, true
	case l.cfg.Level >= gormlogger.Info:
		return zapcore.DebugLevel, true
	default:
		return 0, false
	}
}

// ParamsFilter drops bound values; volumes and signatures stay out of logs.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

// describeSQL returns the statement verb and the first table it touches.
func describeSQL(sql string) (string, string) {
	tokens := strings.Fields(sql)
	op := "UNKNOWN"
	for i, raw := range tokens {
		token := strings.ToUpper(strings.Trim(raw, "();"))
		switch token {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			if op == "UNKNOWN" {
				op = token
			}
			if token == "UPDATE" && i+1 < len(tokens) {
				return op, tableName(tokens[i+1])
			}
		case "FROM", "INTO":
			if op != "UNKNOWN" && i+1 < len(tokens) {
				return op, tableName(tokens[i+1])
			}
		}
	}
	return op, ""
}

func tableName(token string) string {
	return strings.Trim(token, "`\"();")
}

var _ gormlogger.Interface = (*GormLogger)(nil)
