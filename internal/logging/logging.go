// Package logging wires zerolog for the engine. Components get a child logger
// carrying a "component" field in place of the old "[component]" prefixes.
package logging

import (
	"io"
	stdLog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logWriter io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}

// Configure sets the global level and output format ("text" or "json").
// Standard library log output is redirected into zerolog at debug level.
func Configure(level, format string) {
	lvl := ParseLevel(level)
	zerolog.SetGlobalLevel(lvl)

	w := logWriter
	if strings.EqualFold(format, "json") {
		w = os.Stdout
	}

	ctx := zerolog.New(w).With().Timestamp()
	if lvl <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger().Level(lvl)
	zerolog.DefaultContextLogger = &log.Logger

	stdLog.SetFlags(0)
	stdLog.SetOutput(stdWriter{logger: log.Logger})
}

// ParseLevel falls back to info on empty or unknown input.
func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Base is the configured logger without a component field; callers add
// their own.
func Base() zerolog.Logger { return log.Logger }

// For returns a child of the global logger tagged with a component.
func For(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// NewWithWriter builds a standalone logger, mostly for tests.
func NewWithWriter(component string, level zerolog.Level, w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Str("component", component).Logger()
}

// SetWriter replaces the console writer used by Configure.
func SetWriter(w io.Writer) { logWriter = w }

type stdWriter struct {
	logger zerolog.Logger
}

func (w stdWriter) Write(p []byte) (int, error) {
	w.logger.Debug().Str("component", "stdlog").Msg(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
