package logging

import (
	"fmt"
	"strings"
)

// Logger is the category logger used across the service. Structured calls
// carry a category, a subcategory and optional extra fields.
type Logger interface {
	Init()

	Debug(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Debugf(template string, args ...any)

	Info(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Infof(template string, args ...any)

	Warn(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Warnf(template string, args ...any)

	Error(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Errorf(template string, args ...any)

	Fatal(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Fatalf(template string, args ...any)
}

type LoggerConfig struct {
	// FilePath enables rotated file output when set. Logs always go to stdout.
	FilePath   string
	Encoding   string
	Level      string
	Logger     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func NewDefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Encoding:   "json",
		Level:      "info",
		Logger:     "zap",
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 14,
	}
}

// NewLogger builds and initializes the configured backend.
func NewLogger(cfg *LoggerConfig) (Logger, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}

	var l Logger
	switch strings.ToLower(cfg.Logger) {
	case "", "zap":
		l = newZapLogger(cfg)
	case "zerolog":
		l = newZeroLogger(cfg)
	default:
		return nil, fmt.Errorf("logger not supported: %q (supported: zap, zerolog)", cfg.Logger)
	}

	l.Init()
	return l, nil
}
