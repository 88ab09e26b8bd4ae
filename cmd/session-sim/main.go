package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/rice/internal/simulator"
)

// Default configuration constants.
const (
	defaultSessions = 20
	defaultVoters   = 4
	defaultTimeout  = 10 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sessions  = flag.Int("sessions", defaultSessions, "Number of sessions to play")
		voters    = flag.Int("voters", defaultVoters, "Voters per session besides the facilitator")
		workers   = flag.Int("workers", runtime.NumCPU(), "Sessions played concurrently")
		catalogID = flag.String("catalog", "default", "Catalog the sessions score against")
		seed      = flag.Uint64("seed", 0, "Seed for vote generation; 0 picks one")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log every finalized session")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulator.ShowHelp()
		return
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := simulator.SetupLogging(*logFormat, level, os.Stdout); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	_, err := simulator.Run(ctx, &simulator.Config{
		BaseURL:   *baseURL,
		Sessions:  *sessions,
		Voters:    *voters,
		Workers:   *workers,
		CatalogID: *catalogID,
		Timeout:   *timeout,
		Seed:      *seed,
		Verbose:   *verbose,
	})
	if err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel is called above
	}
}
