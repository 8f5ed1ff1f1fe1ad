// Package logging configures the structured logger shared by every stage.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a component-scoped logger writing to w (os.Stderr if nil).
// Every stage gets its own logger via New("l0"), New("curator"), etc., so
// log lines are attributable without per-call tagging.
func New(component string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).With().
		Timestamp().
		Str("component", component).
		Logger()
}

// NewConsole returns a human-readable console logger, for interactive use
// (Trickle, CLI debug commands) rather than production JSON logs.
func NewConsole(component string) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(cw).With().
		Timestamp().
		Str("component", component).
		Logger()
}
