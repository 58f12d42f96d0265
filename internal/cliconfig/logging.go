package cliconfig

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/rolekeeper/pkg/log"
)

// NewLogger builds the console logger used by the CLI at the given level
// name ("debug", "info", "warn", "error").
func NewLogger(level string) (*log.ZerologAdapter, error) {
	return NewLoggerWithWriter(os.Stderr, level)
}

// NewLoggerWithWriter is NewLogger writing to w.
func NewLoggerWithWriter(w io.Writer, level string) (*log.ZerologAdapter, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stderr}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	return log.NewZerologAdapterWithLogger(zl), nil
}
