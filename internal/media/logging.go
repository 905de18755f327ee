package media

import (
	"fmt"
	"log/slog"

	"github.com/pion/logging"
)

// slogLoggerFactory adapts pion's internal logging (used by ICE/DTLS/SRTP)
// onto the process-wide slog logger, so a single structured log stream
// covers both this core and the media library it wraps.
type slogLoggerFactory struct {
	logger *slog.Logger
}

func (f *slogLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &slogLeveledLogger{logger: f.logger.With("pion_scope", scope)}
}

type slogLeveledLogger struct {
	logger *slog.Logger
}

func (l *slogLeveledLogger) Trace(msg string)                  { l.logger.Debug(msg) }
func (l *slogLeveledLogger) Tracef(format string, args ...interface{}) {
	l.logger.Debug(sprintf(format, args...))
}
func (l *slogLeveledLogger) Debug(msg string) { l.logger.Debug(msg) }
func (l *slogLeveledLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(sprintf(format, args...))
}
func (l *slogLeveledLogger) Info(msg string) { l.logger.Info(msg) }
func (l *slogLeveledLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(sprintf(format, args...))
}
func (l *slogLeveledLogger) Warn(msg string) { l.logger.Warn(msg) }
func (l *slogLeveledLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warn(sprintf(format, args...))
}
func (l *slogLeveledLogger) Error(msg string) { l.logger.Error(msg) }
func (l *slogLeveledLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(sprintf(format, args...))
}

func sprintf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
