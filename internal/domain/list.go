package domain

import "time"

// ListRecordStatus is the review state of a standalone list.
type ListRecordStatus string

const (
	ListRecordDraft    ListRecordStatus = "draft"
	ListRecordApproved ListRecordStatus = "approved"
)

// ListRecord is an uploaded prospect/account list. Lists are independent
// entities; attaching one to a campaign copies its status into the
// campaign's list stage rather than referencing it live.
type ListRecord struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	Name         string           `json:"name"`
	ListType     string           `json:"list_type"` // "account" or "prospect"
	Status       ListRecordStatus `json:"status"`
	Preview      []ListPreviewRow `json:"preview,omitempty"`
	TotalRecords int              `json:"total_records"`
	CreatedAt    time.Time        `json:"created_at"`
}
