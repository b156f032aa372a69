// Package obslog provides the daemon's structured logger: the Logger shape
// ported from pkg/orchestrator/types.go, backed by github.com/rs/zerolog.
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the logging capability every internal package depends on.
// Matches pkg/orchestrator.Logger so packages ported from the teacher keep
// their original call sites.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards everything; used by tests and library callers that
// don't want daemon log output.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, args ...interface{}) {}
func (NoOpLogger) Info(msg string, args ...interface{})  {}
func (NoOpLogger) Warn(msg string, args ...interface{})  {}
func (NoOpLogger) Error(msg string, args ...interface{}) {}

// zlog wraps a zerolog.Logger to satisfy Logger, treating the variadic args
// as alternating key/value pairs the way the teacher's call sites pass them.
type zlog struct {
	l zerolog.Logger
}

// New builds a zerolog-backed Logger writing to logPath, and additionally to
// stderr in human-readable form when foreground is true (spec.md §7,
// SPEC_FULL.md ambient logging section).
func New(logPath string, foreground bool) (Logger, io.Closer, error) {
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = f
	if foreground {
		w = zerolog.MultiLevelWriter(f, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return &zlog{l: zerolog.New(w).With().Timestamp().Logger()}, f, nil
}

func withFields(e *zerolog.Event, args []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, args[i+1])
	}
	return e
}

func (z *zlog) Debug(msg string, args ...interface{}) { withFields(z.l.Debug(), args).Msg(msg) }
func (z *zlog) Info(msg string, args ...interface{})  { withFields(z.l.Info(), args).Msg(msg) }
func (z *zlog) Warn(msg string, args ...interface{})  { withFields(z.l.Warn(), args).Msg(msg) }
func (z *zlog) Error(msg string, args ...interface{}) { withFields(z.l.Error(), args).Msg(msg) }
