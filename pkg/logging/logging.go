// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls logger initialization.
type Options struct {
	Level  string // trace, debug, info, warn, error
	Format string // "console" or "json"
	Output string // "stdout", "stderr", or a file path
}

// Init configures the global logger and returns it. Call once at startup;
// the returned logger is safe for concurrent use.
func Init(opts Options) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(defaultString(opts.Level, "info")))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer
	switch opts.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file %q: %w", opts.Output, err)
		}
		output = file
	}

	if strings.ToLower(opts.Format) == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger
	return logger, nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
