package perspective

import (
	"github.com/jaxron/axonet/pkg/client/logger"
	"go.uber.org/zap"
)

// axonetLogger adapts zap.Logger to the axonet logger.Logger interface
// so the HTTP client logs through the application logger.
type axonetLogger struct {
	zap *zap.Logger
}

// newLogger wraps a zap.Logger for the axonet HTTP client.
func newLogger(zapLogger *zap.Logger) logger.Logger {
	return &axonetLogger{zap: zapLogger.Named("http")}
}

func (l *axonetLogger) Debug(msg string) { l.zap.Debug(msg) }
func (l *axonetLogger) Info(msg string)  { l.zap.Info(msg) }
func (l *axonetLogger) Warn(msg string)  { l.zap.Warn(msg) }
func (l *axonetLogger) Error(msg string) { l.zap.Error(msg) }

func (l *axonetLogger) Debugf(format string, args ...interface{}) { l.zap.Sugar().Debugf(format, args...) }
func (l *axonetLogger) Infof(format string, args ...interface{})  { l.zap.Sugar().Infof(format, args...) }
func (l *axonetLogger) Warnf(format string, args ...interface{})  { l.zap.Sugar().Warnf(format, args...) }
func (l *axonetLogger) Errorf(format string, args ...interface{}) { l.zap.Sugar().Errorf(format, args...) }

// WithFields creates a new logger with additional context fields.
func (l *axonetLogger) WithFields(fields ...logger.Field) logger.Logger {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zapFields[i] = zap.Any(f.Key, f.Value)
	}
	return &axonetLogger{zap: l.zap.With(zapFields...)}
}
