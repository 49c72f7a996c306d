package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger for one binary. APP_ENV=dev (or development)
// writes through the console writer; everything else emits JSON tagged with the
// service name. An unparsable level falls back to info.
func NewLogger(env, level, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if env == "dev" || env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(lvl).With().Timestamp().Str("service", service).Logger()
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Str("service", service).Logger()
}
