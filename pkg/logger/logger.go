package logger

import (
	"fmt"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// NewZapLogger builds the application logger. Console output uses the
// development encoder; json output is meant for log shippers.
func NewZapLogger(level, format string) (*zap.Logger, error) {
	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		logLevel = zapcore.InfoLevel
		log.Printf("Invalid log level '%s', using default 'info'\n", level)
	}

	var cfg zap.Config
	switch format {
	case "", FormatConsole:
		cfg = zap.NewDevelopmentConfig()
	case FormatJSON:
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(logLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(zap.Fields(zap.String("service", "spendwise-api")))
}
