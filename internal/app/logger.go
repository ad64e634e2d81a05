package app

import (
	"strings"

	"github.com/charlesng35/sessiongate/pkg/logger"
)

// ConfigureLogging initialises the global logger with the provided level, defaulting to info.
// The debug level also switches to the development encoder.
func ConfigureLogging(level string) error {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(logger.Options{
		Level:       level,
		Development: level == "debug",
	})
}
