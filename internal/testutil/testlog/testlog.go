package testlog

import (
	"testing"

	"github.com/rs/zerolog"

	"huddle/internal/logging"
)

// Start configures test logging and returns a logger tagged with the test name.
func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	logger := logging.ConfigureTests().With().Str("test", t.Name()).Logger()
	logger.Debug().Msg("start")
	return logger
}
