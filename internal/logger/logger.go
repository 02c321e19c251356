package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

func New() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Logger()

	logger = logger.Level(zerolog.InfoLevel)

	return logger
}

func SetLevel(level zerolog.Level) zerolog.Logger {
	return New().Level(level)
}

// ParseLevel maps a config value such as "debug" or "WARN" to a zerolog level,
// falling back to info for anything it does not recognise.
func ParseLevel(value string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
