// Package stdlogger adapts the global zerolog logger to printf style logger interfaces
// such as the gorm logger writer.
package stdlogger

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger forwards printf style calls to zerolog.
type Logger struct {
	component string
	level     zerolog.Level
}

// New returns a Logger writing Printf calls at info level.
func New() *Logger {
	return &Logger{level: zerolog.InfoLevel}
}

// WithComponent returns a copy tagging every entry with component.
func (l *Logger) WithComponent(component string) *Logger {
	c := *l
	c.component = component

	return &c
}

// WithLevel returns a copy writing Printf calls at level.
func (l *Logger) WithLevel(level zerolog.Level) *Logger {
	c := *l
	c.level = level

	return &c
}

// Printf implements the gorm logger.Writer interface.
func (l *Logger) Printf(format string, args ...any) {
	l.event(log.WithLevel(l.level)).Msgf(strings.TrimSpace(format), args...)
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.event(log.Debug()).Msgf(format, args...)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.event(log.Info()).Msgf(format, args...)
}

// Warningf logs at warn level.
func (l *Logger) Warningf(format string, args ...any) {
	l.event(log.Warn()).Msgf(format, args...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.event(log.Error()).Msgf(format, args...)
}

func (l *Logger) event(e *zerolog.Event) *zerolog.Event {
	if l.component != "" {
		e = e.Str("component", l.component)
	}

	return e
}
