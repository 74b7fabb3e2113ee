package cliconfig

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/gesturelink/pkg/log"
)

// NewLogger returns a console logger writing to w. The level is applied
// globally through zerolog.SetGlobalLevel so that SetLogLevel can change it
// while the process runs.
func NewLogger(w io.Writer, level string) (zerolog.Logger, error) {
	if err := SetLogLevel(level); err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger(), nil
}

// SetLogLevel changes the process-wide log level.
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
