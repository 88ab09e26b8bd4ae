// Package types contains common types used across the application
package types

import "github.com/okian/rice/internal/domain/model"

// Entry represents a ranked result in the results report
type Entry struct {
	Rank      int            `json:"rank"`
	SessionID string         `json:"session_id"`
	RiceScore float64        `json:"rice_score"`
	Priority  model.Priority `json:"priority,omitempty"`
}
