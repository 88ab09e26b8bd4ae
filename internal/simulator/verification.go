package simulator

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/rice/internal/domain/types"
)

// ErrMismatch reports a report that disagrees with the played sessions.
var ErrMismatch = errors.New("report mismatch")

const scoreTolerance = 1e-9

// verifyReport checks that the report is ordered best first and carries
// every played session with the score its result returned. The report may
// hold sessions from earlier runs; when it is full (limit entries) played
// sessions may have been pushed out of it.
func verifyReport(outcomes []Outcome, report []types.Entry, limit int) error {
	byID := make(map[string]types.Entry, len(report))
	for i, e := range report {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: entry %d has rank %d", ErrMismatch, i, e.Rank)
		}
		if i > 0 && e.RiceScore > report[i-1].RiceScore {
			return fmt.Errorf("%w: rank %d scores %.4f above rank %d", ErrMismatch, e.Rank, e.RiceScore, e.Rank-1)
		}
		byID[e.SessionID] = e
	}
	full := len(report) >= limit
	for _, o := range outcomes {
		e, ok := byID[o.SessionID]
		if !ok {
			if full {
				continue
			}
			return fmt.Errorf("%w: session %s missing from report", ErrMismatch, o.SessionID)
		}
		if math.Abs(e.RiceScore-o.RiceScore) > scoreTolerance {
			return fmt.Errorf("%w: session %s scored %.4f, report says %.4f", ErrMismatch, o.SessionID, o.RiceScore, e.RiceScore)
		}
	}
	return nil
}
