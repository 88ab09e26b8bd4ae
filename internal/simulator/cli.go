package simulator

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/rice/pkg/logger"
)

// SetupLogging initializes the global logger for the simulator.
func SetupLogging(format, level string, w io.Writer) error {
	if err := logger.Init(logger.WithFormat(format), logger.WithWriter(w)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := logger.SetLevelString(level); err != nil {
		return fmt.Errorf("failed to set log level: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the session simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`RICE Session Simulator
======================

Plays complete scoring sessions against a running service: every session
gets a facilitator and concurrent voters, walks through reach, impact,
confidence and effort, reveals each dimension and finalizes the result.
The results report is then checked against the computed results.

Usage:
  go run ./cmd/session-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of sessions to play (default 20)
  -voters int
        Voters per session besides the facilitator (default 4)
  -workers int
        Sessions played concurrently (default CPU cores)
  -catalog string
        Catalog the sessions score against (default "default")
  -seed uint
        Seed for vote generation; 0 picks one
  -timeout duration
        HTTP request timeout (default 10s)
  -log-format string
        text or json (default "text")
  -verbose
        Log every finalized session
  -help
        Show this help message

Examples:
  go run ./cmd/session-sim -sessions 200 -voters 8 -workers 16
  go run ./cmd/session-sim -url http://localhost:8080 -seed 42 -verbose
`)
}
