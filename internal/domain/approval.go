package domain

import "time"

// ApprovalStage identifies which gate an approval record belongs to.
type ApprovalStage string

const (
	StageList ApprovalStage = "list"
	StageCopy ApprovalStage = "copy"
)

// AuditAction is one discrete action inside an approval's audit log.
// Actor is always the authenticated caller, never the impersonated
// identity, so the trail records who acted.
type AuditAction struct {
	Action    string         `json:"action"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Details   map[string]any `json:"details,omitempty"`
}

// ApprovalRecord is an append-only log entry for one approval gate.
// Records are never mutated after insert.
type ApprovalRecord struct {
	ID            string        `json:"id"`
	CampaignID    string        `json:"campaign_id"`
	Stage         ApprovalStage `json:"approval_stage"`
	Status        string        `json:"status"`
	ApprovedBy    string        `json:"approved_by"`
	ApproverEmail string        `json:"approver_email"`
	Comments      string        `json:"comments,omitempty"`
	ApprovedAt    time.Time     `json:"approved_at"`
	AuditLog      []AuditAction `json:"audit_log,omitempty"`
}
