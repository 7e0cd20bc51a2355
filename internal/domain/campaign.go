package domain

import "time"

// CampaignStatus tracks content generation progress for a campaign.
type CampaignStatus string

const (
	CampaignDraft           CampaignStatus = "draft"
	CampaignGenerating      CampaignStatus = "generating"
	CampaignAssetsGenerated CampaignStatus = "assets_generated"
	CampaignLaunchApproved  CampaignStatus = "launch_approved"
)

// ApprovalStatus is the human-approval gate a campaign currently sits behind.
// Transitions are monotonic forward except the explicit rejection path.
type ApprovalStatus string

const (
	ApprovalDraft          ApprovalStatus = "draft"
	ApprovalPendingList    ApprovalStatus = "pending_list"
	ApprovalPendingCopy    ApprovalStatus = "pending_copy"
	ApprovalLaunchApproved ApprovalStatus = "launch_approved"
	ApprovalRejected       ApprovalStatus = "rejected"
)

// ListStatus tracks the prospect/account list stage of a campaign.
type ListStatus string

const (
	ListPendingQuestions ListStatus = "pending_questions"
	ListNotRequired      ListStatus = "not_required"
	ListPendingUpload    ListStatus = "pending_upload"
	ListUploaded         ListStatus = "uploaded"
	ListApproved         ListStatus = "approved"
	ListClientReviewed   ListStatus = "client_reviewed"
)

// LaunchStatus tracks the post-approval launch handoff.
type LaunchStatus string

const (
	LaunchNotLaunched LaunchStatus = "not_launched"
	LaunchInProgress  LaunchStatus = "in_progress"
	LaunchLive        LaunchStatus = "live"
)

// ListPreviewRow is a single redacted row of an uploaded list. Only these
// three columns are ever exposed to clients; the raw file never leaves the
// upload path.
type ListPreviewRow struct {
	AccountName  string `json:"account_name"`
	ProspectName string `json:"prospect_name"`
	JobTitle     string `json:"job_title"`
}

// ListData carries the list-stage payload on a campaign.
type ListData struct {
	HasAccountList  bool             `json:"has_account_list"`
	HasProspectList bool             `json:"has_prospect_list"`
	AttachedListID  string           `json:"attached_list_id,omitempty"`
	Preview         []ListPreviewRow `json:"list_preview,omitempty"`
	TotalRecords    int              `json:"total_records,omitempty"`
	UploadedAt      *time.Time       `json:"uploaded_at,omitempty"`
	UploadedBy      string           `json:"uploaded_by,omitempty"`
}

// FinalOutputs holds the generated copy subject to validation and approval.
type FinalOutputs struct {
	RawContent string         `json:"raw_content,omitempty"`
	Structured map[string]any `json:"structured,omitempty"`
	AgentName  string         `json:"agent_name,omitempty"`
}

// Campaign is one unit of outbound work for a tenant, progressing through
// list, copy, and launch stages.
type Campaign struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	PlayCode        string         `json:"play_code"`
	Name            string         `json:"campaign_name"`
	CampaignType    string         `json:"campaign_type"`
	Brief           map[string]any `json:"campaign_brief"`
	AdditionalBrief string         `json:"additional_brief,omitempty"`

	Status         CampaignStatus `json:"status"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	ListStatus     ListStatus     `json:"list_status"`
	LaunchStatus   LaunchStatus   `json:"launch_status"`

	ListData            ListData       `json:"list_data"`
	IntermediaryOutputs map[string]any `json:"intermediary_outputs"`
	FinalOutputs        FinalOutputs   `json:"final_outputs"`
	ApprovedCopy        string         `json:"approved_copy,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListRequired reports whether the list stage applies to this campaign.
// A campaign whose owner already has both lists skips the list gate, and
// the engine treats the stage as satisfied.
func (c *Campaign) ListRequired() bool {
	return c.ListStatus != ListNotRequired
}

// Launched reports whether the campaign has been handed off for launch.
func (c *Campaign) Launched() bool {
	return c.LaunchStatus == LaunchInProgress || c.LaunchStatus == LaunchLive
}

// RefKind identifies which backing table holds a campaign-like entity.
// The schema grew three differently-shaped tables over time; a ref is
// resolved once at the repository boundary and then used everywhere.
type RefKind string

const (
	RefCampaign      RefKind = "campaign"
	RefOutbound      RefKind = "outbound_campaign"
	RefPlayExecution RefKind = "play_execution"
)

// CampaignRef is a tagged reference to a campaign-like row.
type CampaignRef struct {
	Kind RefKind `json:"kind"`
	ID   string  `json:"id"`
}
