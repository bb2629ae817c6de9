package testutil

import (
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger for use in tests, prefixed so its lines
// are distinguishable from the server's own "[watchparty]" output.
func TestLogger(t *testing.T) *log.Logger {
	logger := log.New(os.Stdout, "[watchparty-test] ", log.LstdFlags)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
	})
	return logger
}
