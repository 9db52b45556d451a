// Package dcontext threads a structured logger through request-scoped
// context.Context values, the way distribution/context does for the
// registry's handler tree.
package dcontext

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger   = logrus.NewEntry(logrus.StandardLogger())
	defaultLoggerMu sync.RWMutex
)

// Logger is the leveled-logging interface carried in request context.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	WithError(err error) *logrus.Entry
}

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the logger bound to ctx, or the package default if
// none was bound. Any keys given are resolved against ctx and attached
// as extra fields, mirroring distribution/context.GetLogger.
func GetLogger(ctx context.Context, keys ...interface{}) Logger {
	return getLogrusLogger(ctx, keys...)
}

// GetLoggerWithFields returns a logger with the given fields added,
// without mutating ctx.
func GetLoggerWithFields(ctx context.Context, fields map[string]interface{}, keys ...interface{}) Logger {
	lfields := make(logrus.Fields, len(fields))
	for k, v := range fields {
		lfields[k] = v
	}
	return getLogrusLogger(ctx, keys...).WithFields(lfields)
}

// SetDefaultLogger replaces the package default logger, which GetLogger
// returns when no logger is bound to the context.
func SetDefaultLogger(logger *logrus.Entry) {
	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
}

func getLogrusLogger(ctx context.Context, keys ...interface{}) *logrus.Entry {
	var logger *logrus.Entry

	if v := ctx.Value(loggerKey{}); v != nil {
		if lgr, ok := v.(*logrus.Entry); ok {
			logger = lgr
		}
	}

	if logger == nil {
		defaultLoggerMu.RLock()
		logger = defaultLogger
		defaultLoggerMu.RUnlock()
	}

	fields := logrus.Fields{}
	for _, key := range keys {
		if v := ctx.Value(key); v != nil {
			fields[fmt.Sprint(key)] = v
		}
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.WithFields(fields)
}
