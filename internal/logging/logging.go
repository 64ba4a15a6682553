// internal/logging/logging.go
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tamzrod/modbus-gateway/internal/config"
)

// New builds the process logger.
//
// Without a file the stock zap production (or development) config is
// used. With a file, JSON lines also go to a size-rotated file.
func New(c config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, err
	}

	if c.File == "" {
		zc := zap.NewProductionConfig()
		if c.Development {
			zc = zap.NewDevelopmentConfig()
		}
		zc.Level = level
		return zc.Build()
	}

	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEnc := zap.NewDevelopmentEncoderConfig()
	if !c.Development {
		consoleEnc = fileEnc
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(rotator(c)), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.Lock(os.Stderr), level),
	)

	return zap.New(core, zap.AddCaller()), nil
}

func rotator(c config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   true,
	}
}
