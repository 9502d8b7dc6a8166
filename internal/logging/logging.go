// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const (
	TextFormat = "text"
	JSONFormat = "json"
)

type Config struct {
	Level  string
	Format string
}

// AddFlags adds logging flags to the given flagset. Flags left unset on the
// command line do not override values already present in cfg.
func AddFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.StringVar(&cfg.Level, "log-level", cfg.Level, "Logging level: trace, debug, info, warn, error")
	flags.StringVar(&cfg.Format, "log-format", cfg.Format, "Logging format: text or json")
}

// New constructs a logger writing to stderr.
func New(cfg Config) (*log.Logger, error) {
	return NewWithOutput(cfg, os.Stderr)
}

func NewWithOutput(cfg Config, out io.Writer) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(out)

	level := log.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = log.ParseLevel(cfg.Level); err != nil {
			return nil, err
		}
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "", TextFormat:
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case JSONFormat:
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unrecognised logging format: %s", cfg.Format)
	}
	return logger, nil
}

// Discard returns a logger that drops everything, for tests.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}
