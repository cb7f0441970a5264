// Package observability holds the process-wide CLI logger.
package observability

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// CLILogger is the logger used by commands. It discards output until
// InitCLILogger runs.
var CLILogger = zap.NewNop()

// LogConfig configures NewLogger.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string

	// Format is FormatConsole or FormatJSON. Empty means console.
	Format string

	// Output defaults to stderr so that stdout carries only records.
	Output io.Writer
}

// NewLogger builds a zap logger from cfg.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "", FormatConsole:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case FormatJSON:
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format %q (expected %s or %s)", cfg.Format, FormatConsole, FormatJSON)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(writer), level)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// InitCLILogger replaces CLILogger with a console logger named name.
// Verbose lowers the level to debug.
func InitCLILogger(name string, verbose bool) {
	level := "info"
	if verbose {
		level = "debug"
	}
	// A fixed level and format cannot fail.
	logger, _ := NewLogger(LogConfig{Level: level})
	CLILogger = logger.Named(name)
}

// ConfigureCLILogger replaces CLILogger according to cfg.
func ConfigureCLILogger(name string, cfg LogConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	CLILogger = logger.Named(name)
	return nil
}
