package domain

import (
	"encoding/json"
	"time"
)

// Submission is a completed onboarding flow as handed to persistence.
type Submission struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	FlowID    string          `json:"flow_id"`
	Responses json.RawMessage `json:"responses"`
	CreatedAt time.Time       `json:"created_at"`
}
