// Package logging builds the zerolog.Logger instances every component
// receives at construction, each tagged with a "component" field, since
// several independent goroutines here (the persister, its supervisor,
// the HTTP server) need to be told apart in one process's logs.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the root Logger. In "dev" mode (or when env is empty) it
// writes human-readable console output; anything else writes newline
// JSON, suitable for log aggregation.
func New(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "" || env == "dev" {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		return zerolog.New(writer).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
