package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "imagebot"

// Logger - логгер процесса: уровень из LOG_LEVEL, поле service,
// предупреждения конфигурации уже записаны.
func (c *Config) Logger(opts ...zap.Option) (*zap.Logger, error) {
	logger, err := NewLogger(c.Log, opts...)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	LogWarnings(logger, c)
	return logger, nil
}

// NewLogger: debug -> цветной development-вывод, остальное -> JSON.
func NewLogger(cfg LogConfig, opts ...zap.Option) (*zap.Logger, error) {
	level := parseLogLevel(cfg.Level)

	var zcfg zap.Config
	if level == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "timestamp"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	// service добавляется после opts, чтобы пережить zap.WrapCore
	opts = append(opts[:len(opts):len(opts)], zap.Fields(zap.String("service", serviceName)))
	return zcfg.Build(opts...)
}

func LogWarnings(logger *zap.Logger, c *Config) {
	for _, w := range c.Warnings() {
		logger.Warn("configuration warning",
			zap.String("code", w.Code),
			zap.String("message", w.Message),
		)
	}
}

// parseLogLevel понимает "warning" как warn; неизвестное -> info.
func parseLogLevel(level string) zapcore.Level {
	level = strings.ToLower(level)
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
