// Package logger provides a configured zerolog instance.
package logger

import (
	"os"

	"github.com/ilindan-dev/auction-watchlist/internal/config"
	"github.com/rs/zerolog"
)

const serviceName = "auction-watchlist"

// NewLogger creates the root zerolog.Logger. Level comes from config,
// every entry carries the service name and caller.
func NewLogger(cfg *config.Config) (*zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Logger.Level)
	if err != nil || cfg.Logger.Level == "" {
		level = zerolog.InfoLevel
	}

	out := zerolog.ConsoleWriter{Out: os.Stderr}

	logger := zerolog.New(out).With().
		Timestamp().
		Str("service", serviceName).
		Caller().
		Logger().
		Level(level)

	return &logger, nil
}
