package logger

import corelogger "github.com/kilianp07/substation/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards everything.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component. The output format follows
// the last Setup call, or the APP_ENV variable when Setup was never called.
func New(component string) Logger {
	return NewZerologLogger(component)
}
