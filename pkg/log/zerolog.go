// Package log: zerolog-backed provider for command-line use.
//
// The library default emits JSON through SlogProvider. Commands that talk
// to a human install this provider instead, which renders compact console
// lines through zerolog.

package log

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// zerologAdapter adapts a zerolog.Logger to the Logger interface.
type zerologAdapter struct {
	logger zerolog.Logger
}

// Debug implements Logger.Debug.
func (z *zerologAdapter) Debug(msg string, fields ...any) {
	z.emit(z.logger.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (z *zerologAdapter) Info(msg string, fields ...any) {
	z.emit(z.logger.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (z *zerologAdapter) Warn(msg string, fields ...any) {
	z.emit(z.logger.Warn(), msg, fields)
}

// Error implements Logger.Error. A leading error field is attached
// through zerolog's error support, matching the slog adapter.
func (z *zerologAdapter) Error(msg string, fields ...any) {
	event := z.logger.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			event = event.Err(err)
			fields = fields[1:]
		}
	}
	z.emit(event, msg, fields)
}

// emit writes alternating key-value fields onto the event. Non-string
// keys and a trailing key without a value are skipped.
func (z *zerologAdapter) emit(event *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, fields[i+1])
	}
	event.Msg(msg)
}

// With implements Logger.With.
func (z *zerologAdapter) With(fields ...any) Logger {
	ctx := z.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zerologAdapter{logger: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (z *zerologAdapter) Enabled(_ context.Context, level Level) bool {
	lvl := zerologLevel(level)
	return lvl >= z.logger.GetLevel() && lvl >= zerolog.GlobalLevel()
}

// zerologLevel maps the slog-compatible levels onto zerolog's scale.
func zerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ZerologProvider is a LoggerProvider that renders console-formatted
// records through zerolog.
type ZerologProvider struct {
	logger zerolog.Logger
}

// NewZerologProvider creates a provider writing console lines to w.
// Output is uncolored so piped and captured logs stay greppable.
func NewZerologProvider(w io.Writer) *ZerologProvider {
	console := zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.Kitchen}
	return &ZerologProvider{
		logger: zerolog.New(console).With().Timestamp().Logger(),
	}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologAdapter{logger: p.logger}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologAdapter{logger: p.logger.With().Str("component", name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel. The level applies to
// loggers obtained after the call.
func (p *ZerologProvider) SetLevel(level Level) {
	p.logger = p.logger.Level(zerologLevel(level))
}
