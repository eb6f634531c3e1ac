package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options selects where and how log lines are written.
type Options struct {
	Level  string
	Format string // console or json
	File   string // empty writes to stderr
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger and installs it as the zerolog global. The returned
// closer releases the log file, if any.
func New(service string, opts Options) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("logging: ensure log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("logging: open log file: %w", err)
		}
		out, closer = f, f
	}

	var logger zerolog.Logger
	if opts.Format == "json" {
		logger = zerolog.New(out).With().Timestamp().Str("service", service).Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    opts.File != "",
		}).With().Timestamp().Str("service", service).Logger()
	}
	logger = logger.Level(level)
	log.Logger = logger
	return logger, closer, nil
}
