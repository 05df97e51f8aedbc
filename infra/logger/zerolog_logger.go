package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Output formats accepted by Setup.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	outMu  sync.RWMutex
	out    io.Writer = os.Stdout
	format string
)

// Setup sets the global level and the output format of loggers created
// afterwards. An empty format falls back to APP_ENV ("dev" selects console).
func Setup(level, fmtName string, w io.Writer) error {
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
	}
	switch fmtName {
	case "", FormatJSON, FormatConsole:
	default:
		return fmt.Errorf("logger: unknown format %q", fmtName)
	}
	zerolog.SetGlobalLevel(lvl)
	outMu.Lock()
	defer outMu.Unlock()
	if w != nil {
		out = w
	}
	format = fmtName
	return nil
}

func currentWriter() io.Writer {
	outMu.RLock()
	defer outMu.RUnlock()
	f := format
	if f == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		f = FormatConsole
	}
	if f == FormatConsole {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return out
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger. All logs include the provided
// component field.
func NewZerologLogger(component string) Logger {
	z := zerolog.New(currentWriter()).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
