package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps "debug", "info", "warn" or "error" (case-insensitive) to a
// level. Anything else yields info.
func ParseLevel(logLevel string) zap.AtomicLevel {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if logLevel == "" {
		return level
	}
	if err := level.UnmarshalText([]byte(strings.ToLower(logLevel))); err != nil {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return level
}

// FileCore writes JSON entries to logPath, rotated at 100 MB with 5 backups.
func FileCore(logPath string, level zapcore.LevelEnabler) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    100, // MB
		MaxBackups: 5,
	})
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), writer, level)
}

// NewLogger creates a JSON logger writing only to file.
// If logPath empty → no-op logger.
func NewLogger(logPath, logLevel string) *zap.SugaredLogger {
	if logPath == "" {
		return zap.NewNop().Sugar()
	}
	return zap.New(FileCore(logPath, ParseLevel(logLevel)), zap.AddCaller()).Sugar()
}
