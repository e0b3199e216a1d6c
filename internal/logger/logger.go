// Package logger builds zerolog loggers for the resolver components.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls log level and destination.
type Config struct {
	Level      string `json:"level" yaml:"level"`
	Debug      bool   `json:"debug" yaml:"debug"`
	Output     string `json:"output" yaml:"output"` // stdout, stderr or console
	TimeFormat string `json:"time_format" yaml:"time_format"`
}

// DefaultConfig returns info-level JSON logging to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Output: "stderr",
	}
}

// New creates a logger from config.
func New(config Config) (zerolog.Logger, error) {
	var output io.Writer
	switch strings.ToLower(config.Output) {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	case "console":
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log output %q", config.Output)
	}
	return NewWithWriter(config, output)
}

// NewWithWriter creates a logger that writes JSON lines to w.
func NewWithWriter(config Config, w io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(config.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
		}
	}

	ctx := zerolog.New(w).Level(level).With()
	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}
	return ctx.Timestamp().Logger(), nil
}

// WithComponent returns a child logger tagged with the component name.
func WithComponent(base zerolog.Logger, component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}
