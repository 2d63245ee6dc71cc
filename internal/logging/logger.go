// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// serviceName is the "app" field on every record.
const serviceName = "replayline"

// Config holds logging configuration.
type Config struct {
	// Level: trace, debug, info, warn, error, disabled. Default: info
	Level string
	// Format: json or console. Default: json
	Format string
	// Caller adds file:line to each record.
	Caller bool
	// Timestamp adds an RFC 3339 "time" field.
	Timestamp bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the configuration used before Init is called.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Timestamp: true, Output: os.Stderr}
}

var (
	mu     sync.RWMutex
	global zerolog.Logger
)

//nolint:gochecknoinits // packages log before main has loaded configuration
func init() {
	global = build(DefaultConfig())
}

// Init replaces the global logger. Safe to call more than once.
func Init(cfg Config) {
	l := build(cfg)
	mu.Lock()
	global = l
	mu.Unlock()
}

func build(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"

	b := zerolog.New(out).With().Str("app", serviceName)
	if cfg.Timestamp {
		b = b.Timestamp()
	}
	if cfg.Caller {
		b = b.Caller()
	}
	return b.Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// NewTestLogger writes JSON records to w without touching the global logger.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

func with() zerolog.Context {
	l := Logger()
	return l.With()
}

// Info starts an info-level record on the global logger.
func Info() *zerolog.Event { l := Logger(); return l.Info() }

// Warn starts a warn-level record on the global logger.
func Warn() *zerolog.Event { l := Logger(); return l.Warn() }

// Error starts an error-level record on the global logger.
func Error() *zerolog.Event { l := Logger(); return l.Error() }

// Fatal starts a fatal record; the process exits after Msg.
func Fatal() *zerolog.Event { l := Logger(); return l.Fatal() }
