// Package logger provides the process-wide structured logger used by every
// other package. It wraps zerolog behind the Infof/Warnf/Errorf calling
// convention the rest of this codebase was written against.
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

// Configure rewires the global logger, e.g. to JSON output for production.
func Configure(w io.Writer, level zerolog.Level, json bool) {
	mu.Lock()
	defer mu.Unlock()
	var l zerolog.Logger
	if json {
		l = zerolog.New(w).With().Timestamp().Logger()
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	}
	log = l.Level(level)
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With returns a child logger carrying the given key/value pairs, for call
// sites that want structured fields instead of a formatted string.
func With(fields map[string]interface{}) zerolog.Logger {
	ctx := current().With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}

func Debugf(format string, args ...interface{}) { l := current(); l.Debug().Msgf(format, args...) }
func Infof(format string, args ...interface{})  { l := current(); l.Info().Msgf(format, args...) }
func Warnf(format string, args ...interface{})  { l := current(); l.Warn().Msgf(format, args...) }
func Errorf(format string, args ...interface{}) { l := current(); l.Error().Msgf(format, args...) }

// Fatalf logs at fatal level and exits the process. Reserved for Config
// failures discovered at startup (§7 error taxonomy: "Config -> fail fast").
func Fatalf(format string, args ...interface{}) {
	l := current()
	l.Fatal().Msgf(format, args...)
}
