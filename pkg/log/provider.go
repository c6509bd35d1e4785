// Package log provides the process-wide logger provider.
//
// This file wires the Logger interface to a default slog-backed implementation
// and exposes package-level accessors used throughout the library. Components
// obtain named loggers with GetLoggerWithName; tests swap the provider with
// SetLoggerProvider to capture output in memory.

package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// slogAdapter adapts *slog.Logger to the Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

// Debug implements Logger.Debug.
func (s *slogAdapter) Debug(msg string, fields ...any) {
	s.logger.Debug(msg, fields...)
}

// Info implements Logger.Info.
func (s *slogAdapter) Info(msg string, fields ...any) {
	s.logger.Info(msg, fields...)
}

// Warn implements Logger.Warn.
func (s *slogAdapter) Warn(msg string, fields ...any) {
	s.logger.Warn(msg, fields...)
}

// Error implements Logger.Error.
// If the first field is an error it is routed through ErrAttr so that
// ErrFmtHandler can extract a stacktrace from cockroachdb/errors values.
func (s *slogAdapter) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			args := make([]any, 0, len(fields))
			args = append(args, ErrAttr(err))
			args = append(args, fields[1:]...)
			s.logger.Error(msg, args...)
			return
		}
	}
	s.logger.Error(msg, fields...)
}

// With implements Logger.With.
func (s *slogAdapter) With(fields ...any) Logger {
	return &slogAdapter{logger: s.logger.With(fields...)}
}

// Enabled implements Logger.Enabled.
func (s *slogAdapter) Enabled(ctx context.Context, level Level) bool {
	return s.logger.Enabled(ctx, slog.Level(level))
}

// SlogProvider is the default LoggerProvider backed by log/slog.
// The minimum level can be adjusted at runtime through SetLevel.
type SlogProvider struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// NewSlogProvider creates a provider emitting JSON records to w.
// Errors logged through the returned loggers carry a stacktrace attribute
// when they originate from cockroachdb/errors.
func NewSlogProvider(w io.Writer) *SlogProvider {
	level := &slog.LevelVar{}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &SlogProvider{
		logger: slog.New(WrapByErrFmtHandler(handler)),
		level:  level,
	}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *SlogProvider) GetLogger() Logger {
	return &slogAdapter{logger: p.logger}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *SlogProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With("component", name)
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *SlogProvider) SetLevel(level Level) {
	p.level.Set(slog.Level(level))
}

var (
	providerMu      sync.RWMutex
	defaultProvider LoggerProvider = NewSlogProvider(os.Stderr)
)

// SetLoggerProvider replaces the process-wide logger provider.
// Intended for application start-up and for tests.
func SetLoggerProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	defaultProvider = p
}

// GetLogger returns the default logger from the current provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns a component-scoped logger from the current provider.
//
// Example:
//
//	logger := log.GetLoggerWithName("boosting.trainer")
//	logger.Info("Training started", log.SamplesKey, 381)
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLoggerWithName(name)
}

// SetLevel sets the minimum level on the current provider.
func SetLevel(level Level) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	defaultProvider.SetLevel(level)
}
