// Package logging provides the module's default structured loggers.
package logging

import (
	"context"
	"log/slog"
	"os"
)

var (
	defaultLevel   slog.LevelVar
	defaultHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: &defaultLevel,
	})
	defaultLogger  = slog.New(defaultHandler)
	disabledLogger = slog.New(&disabledHandler{})
)

// disabledHandler is a slog.Handler that is disabled for all levels.
type disabledHandler struct{}

func (d *disabledHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (d *disabledHandler) Handle(context.Context, slog.Record) error { return nil }
func (d *disabledHandler) WithAttrs([]slog.Attr) slog.Handler        { return d }
func (d *disabledHandler) WithGroup(string) slog.Handler             { return d }

// Default returns the module's default logger.
func Default() *slog.Logger {
	return defaultLogger
}

// SetDefaultLevel sets the logging level used by Default.
func SetDefaultLevel(l slog.Level) {
	defaultLevel.Set(l)
}

// Disabled returns a logger that discards everything, used when a caller
// does not supply one.
func Disabled() *slog.Logger {
	return disabledLogger
}
