package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const fileName = "dnsoptimizer.log"

// NewLogger writes JSON lines to a rotating file under logDir.
func NewLogger(logDir string) (*zap.Logger, error) {
	core, err := fileCore(logDir)
	if err != nil {
		return nil, err
	}
	return zap.New(core), nil
}

// NewConsoleLogger is NewLogger plus warnings and errors on stderr, for
// interactive front-ends.
func NewConsoleLogger(logDir string) (*zap.Logger, error) {
	core, err := fileCore(logDir)
	if err != nil {
		return nil, err
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	console := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), zap.WarnLevel)
	return zap.New(zapcore.NewTee(core, console)), nil
}

func fileCore(logDir string) (zapcore.Core, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, fileName),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	return zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, zap.InfoLevel), nil
}
