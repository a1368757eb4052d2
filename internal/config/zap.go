package config

import (
	"strings"

	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func LoadLogConfig(config *koanf.Koanf) LogConfig {
	logConfig := LogConfig{
		Level:      config.String("LOG_LEVEL"),
		File:       config.String("LOG_FILE"),
		MaxSizeMB:  config.Int("LOG_MAX_SIZE_MB"),
		MaxBackups: config.Int("LOG_MAX_BACKUPS"),
	}

	if logConfig.MaxSizeMB <= 0 {
		logConfig.MaxSizeMB = 1
	}
	if logConfig.MaxBackups <= 0 {
		logConfig.MaxBackups = 5
	}

	return logConfig
}

func parseLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewZap builds the production logger. With a log file configured, every entry is also
// written to a rotating file.
func NewZap(logConfig LogConfig) *zap.Logger {
	level := zap.NewAtomicLevelAt(parseLevel(logConfig.Level))

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	cfg.EncoderConfig.StacktraceKey = ""
	cfg.EncoderConfig.TimeKey = "timestamp"

	var options []zap.Option
	if logConfig.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   logConfig.File,
			MaxSize:    logConfig.MaxSizeMB,
			MaxBackups: logConfig.MaxBackups,
			Compress:   true,
		}
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), zapcore.AddSync(rotator), level)
		options = append(options, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	log, _ := cfg.Build(options...)

	return log
}
