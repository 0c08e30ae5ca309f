package domain

import "time"

// ChangeAction describes what happened to a location.
type ChangeAction string

const (
	ActionCreated ChangeAction = "created"
	ActionUpdated ChangeAction = "updated"
)

// LocationChange is emitted for every location an import creates or updates.
type LocationChange struct {
	Action     ChangeAction `json:"action"`
	Role       Role         `json:"role"`
	Location   Location     `json:"location"`
	JobID      string       `json:"job_id,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}
