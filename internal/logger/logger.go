package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimeLayout is the timestamp written at the start of each log line.
const TimeLayout = "2006-01-02 15:04:05"

// Setup builds a zap logger writing to both stdout and a rotating file.
// If the file cannot be opened the logger falls back to stdout only.
// The returned logger also becomes the zap global and captures the standard library log.
func Setup(filename string, maxSizeMB int64, maxBackups int, level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}

	var fileErr error
	if filename != "" {
		rotator := NewRotator(filename, maxSizeMB, maxBackups)
		if fileErr = rotator.openExistingOrNew(); fileErr == nil {
			sinks = append(sinks, zapcore.AddSync(rotator))
		}
	}

	l := New(zapcore.NewMultiWriteSyncer(sinks...), lvl)
	if fileErr != nil {
		l.Warn("Failed to open log file, using stdout only", zap.String("file", filename), zap.Error(fileErr))
	}

	zap.ReplaceGlobals(l)
	zap.RedirectStdLog(l)
	return l, nil
}

// New builds the console-encoded logger on any sink.
func New(sink zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(TimeLayout)
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.ConsoleSeparator = " "

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, level)
	return zap.New(core, zap.AddCaller())
}

// ParseLevel maps LOG_LEVEL values (DEBUG, info, ...) to zap levels. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}
