// Package testlog wires zerolog output into the testing harness so log lines
// attach to the test that produced them.
package testlog

import (
	"testing"

	"github.com/rs/zerolog"
)

func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.TestWriter{T: t}).
		Level(zerolog.DebugLevel).
		With().
		Str("test", t.Name()).
		Logger()
}
