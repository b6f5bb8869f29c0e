package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// GetLogger returns zap.Logger instance, but using singleton pattern creates only one reusable instace.
// APP_ENV=production switches to the JSON production config, development config otherwise
func GetLogger() *zap.Logger {
	once.Do(func() {
		var cfg zap.Config
		if os.Getenv("APP_ENV") == "production" {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.TimeKey = "ts"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		} else {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		var err error
		logger, err = cfg.Build()
		if err != nil {
			panic("failed logger setup : " + err.Error())
		}
	})
	return logger
}
