package logger

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLogLevel 未通过 SetLevel 指定时的默认日志级别.
const EnvLogLevel = "NETGRID_LOG_LEVEL"

var (
	defaultLevel  = zap.NewAtomicLevelAt(ParseLevel(os.Getenv(EnvLogLevel), zapcore.WarnLevel))
	defaultLogger = NewLogger("netgrid", defaultLevel)
)

// SetLevel 运行时调整默认日志器的级别. 经 SetupDefaultLogger 替换后的日志器不受影响.
func SetLevel(level string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return errors.Wrapf(err, "log level %q", level)
	}
	defaultLevel.SetLevel(l)
	return nil
}

func Level() zapcore.Level {
	return defaultLevel.Level()
}

func SetupDefaultLogger(l *zap.SugaredLogger) {
	defaultLogger = l
}

func Default() *zap.SugaredLogger {
	return defaultLogger
}

func Debug(args ...interface{}) {
	defaultLogger.Debug(args...)
}

func Debugf(template string, args ...interface{}) {
	defaultLogger.Debugf(template, args...)
}

func Info(args ...interface{}) {
	defaultLogger.Info(args...)
}

func Infof(template string, args ...interface{}) {
	defaultLogger.Infof(template, args...)
}

func Warn(args ...interface{}) {
	defaultLogger.Warn(args...)
}

func Warnf(template string, args ...interface{}) {
	defaultLogger.Warnf(template, args...)
}

func Error(args ...interface{}) {
	defaultLogger.Error(args...)
}

func Errorf(template string, args ...interface{}) {
	defaultLogger.Errorf(template, args...)
}
