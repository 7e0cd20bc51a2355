package domain

import "time"

// ExecutionStatus tracks a play execution's approval state.
type ExecutionStatus string

const (
	ExecutionPendingApproval ExecutionStatus = "pending_approval"
	ExecutionApproved        ExecutionStatus = "approved"
)

// PlayExecution is the narrower single-play variant of a campaign: one
// play run for a client, carrying its generated output through the same
// human approval gate. It shares the campaign's ownership and audit rules
// but has no list stage.
type PlayExecution struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	PlayCode     string          `json:"play_code"`
	PlayName     string          `json:"play_name,omitempty"`
	Status       ExecutionStatus `json:"status"`
	Payload      map[string]any  `json:"payload"`
	FinalOutput  string          `json:"final_output,omitempty"`
	EditedOutput string          `json:"edited_output,omitempty"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Approved reports whether the execution has passed its approval gate.
func (e *PlayExecution) Approved() bool {
	return e.Status == ExecutionApproved
}
