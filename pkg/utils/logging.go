package utils

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger *zap.Logger

// Logger returns the process-wide logger. When LOG_FILE is set, JSON entries
// go to stdout and to a size-rotated file at that path.
func Logger() *zap.Logger {
	if logger != nil {
		return logger
	}
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		l, _ := zap.NewProduction()
		logger = l
		return logger
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		l, _ := zap.NewProduction()
		logger = l
		return logger
	}
	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     14,
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(encCfg)
	lvl := zapcore.InfoLevel
	fileCore := zapcore.NewCore(enc, zapcore.AddSync(rotator), lvl)
	consoleCore := zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), lvl)
	logger = zap.New(zapcore.NewTee(fileCore, consoleCore))
	return logger
}
