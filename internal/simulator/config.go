package simulator

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Sessions  int           // Number of sessions to play
	Voters    int           // Voters per session, besides the facilitator
	Workers   int           // Sessions played concurrently
	CatalogID string        // Catalog the sessions score against
	Timeout   time.Duration // HTTP request timeout
	Seed      uint64        // Seed for vote generation; 0 picks one
	Verbose   bool          // Log every session
}

// Stats holds run statistics.
type Stats struct {
	SessionsCreated   int
	SessionsFinalized int
	Participants      int
	VotesSubmitted    int
	VotesFailed       int
	Reveals           int
	ReportEntries     int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// Outcome is the result of one played session.
type Outcome struct {
	SessionID string
	RiceScore float64
	Priority  string
}
