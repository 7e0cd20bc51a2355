package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fractionalops/claire-backend/internal/domain"
	"github.com/fractionalops/claire-backend/internal/pkg/logger"
	"github.com/fractionalops/claire-backend/internal/placeholder"
)

// Notification event types emitted by the engine.
const (
	EventListBuildingRequired = "list_building_required"
	EventListUploaded         = "list_uploaded"
	EventListApproved         = "list_approved"
	EventCopyApproved         = "copy_approved"
	EventCopyRejected         = "copy_rejected"
	EventCampaignLaunched     = "campaign_launched"
	EventExecutionApproved    = "execution_approved"
)

const (
	previewRowCap     = 100
	generationLockTTL = 5 * time.Minute
)

// Service implements the campaign lifecycle state machine. All public
// methods are safe for concurrent use if the underlying repository is
// concurrency-safe; simultaneous transitions on one campaign serialize on
// the repository's row lock.
type Service struct {
	repo     Repository
	lists    ListStore
	gateway  Gateway
	notifier Notifier
	locks    Locker
}

// NewService creates a lifecycle service. notifier and locks may be nil in
// tests; gateway may be nil if copy generation is not exercised.
func NewService(repo Repository, lists ListStore, gateway Gateway, notifier Notifier, locks Locker) *Service {
	return &Service{repo: repo, lists: lists, gateway: gateway, notifier: notifier, locks: locks}
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	PlayCode        string         `json:"playCode"`
	Name            string         `json:"campaignName"`
	Brief           map[string]any `json:"campaignBrief"`
	AdditionalBrief string         `json:"additionalBrief"`
	CampaignType    string         `json:"campaignType"`
}

// Create validates and persists a new campaign. The campaign starts ahead
// of the list-questions transition: draft status, list stage pending the
// questionnaire answers.
func (s *Service) Create(ctx context.Context, actor domain.Actor, input CreateInput) (*domain.Campaign, error) {
	if input.PlayCode == "" {
		return nil, fmt.Errorf("%w: playCode is required", ErrPreconditionFailed)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: campaignName is required", ErrPreconditionFailed)
	}

	now := time.Now().UTC()
	c := &domain.Campaign{
		ID:                  uuid.New().String(),
		UserID:              actor.EffectiveUserID,
		PlayCode:            input.PlayCode,
		Name:                strings.TrimSpace(input.Name),
		CampaignType:        input.CampaignType,
		Brief:               input.Brief,
		AdditionalBrief:     strings.TrimSpace(input.AdditionalBrief),
		Status:              domain.CampaignDraft,
		ApprovalStatus:      domain.ApprovalDraft,
		ListStatus:          domain.ListPendingQuestions,
		LaunchStatus:        domain.LaunchNotLaunched,
		IntermediaryOutputs: map[string]any{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if c.Brief == nil {
		c.Brief = map[string]any{}
	}

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id

	logger.Info("campaign created",
		"campaign_id", c.ID,
		"play_code", c.PlayCode,
		"actor", actor.CallerEmail)
	return c, nil
}

// Get returns a single campaign scoped to the effective actor.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, actor.EffectiveUserID, id)
}

// List returns the effective actor's campaigns matching the filter.
func (s *Service) List(ctx context.Context, actor domain.Actor, f ListFilter) ([]domain.Campaign, error) {
	return s.repo.List(ctx, actor.EffectiveUserID, f)
}

// AnswerListQuestions records the list-building questionnaire answers and
// routes the campaign into the list stage or straight to copy approval.
// Owners who already hold both an account and a prospect list skip the
// list gate entirely.
func (s *Service) AnswerListQuestions(ctx context.Context, actor domain.Actor, id string, hasAccountList, hasProspectList bool) (*domain.Campaign, error) {
	c, err := s.repo.Transition(ctx, actor.EffectiveUserID, id, func(c *domain.Campaign) (*domain.ApprovalRecord, error) {
		if c.ApprovalStatus == domain.ApprovalLaunchApproved {
			return nil, fmt.Errorf("%w: campaign already approved for launch", ErrPreconditionFailed)
		}

		c.ListData.HasAccountList = hasAccountList
		c.ListData.HasProspectList = hasProspectList

		if hasAccountList && hasProspectList {
			c.ListStatus = domain.ListNotRequired
			c.ApprovalStatus = domain.ApprovalPendingCopy
		} else {
			c.ListStatus = domain.ListPendingUpload
			c.ApprovalStatus = domain.ApprovalPendingList
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	if c.ListStatus == domain.ListPendingUpload {
		s.notify(ctx, c.ID, EventListBuildingRequired, map[string]any{
			"campaignName": c.Name,
			"playCode":     c.PlayCode,
		})
	}
	return c, nil
}

// UploadList stores a parsed list on the campaign. Only admins (solution
// architects) upload lists; the redacted preview is capped so a full PII
// dump never lands on the campaign row.
func (s *Service) UploadList(ctx context.Context, actor domain.Actor, id, listType string, rows []domain.ListPreviewRow, totalRecords int) (*domain.Campaign, error) {
	if !actor.IsAdmin {
		return nil, fmt.Errorf("%w: admin access required to upload lists", ErrForbidden)
	}
	if listType != "account" && listType != "prospect" {
		return nil, fmt.Errorf("%w: list_type must be account or prospect", ErrPreconditionFailed)
	}

	preview := rows
	if len(preview) > previewRowCap {
		preview = preview[:previewRowCap]
	}
	now := time.Now().UTC()

	c, err := s.repo.Transition(ctx, actor.EffectiveUserID, id, func(c *domain.Campaign) (*domain.ApprovalRecord, error) {
		if c.ApprovalStatus == domain.ApprovalLaunchApproved {
			return nil, fmt.Errorf("%w: campaign already approved for launch", ErrPreconditionFailed)
		}
		c.ListStatus = domain.ListUploaded
		c.ListData.Preview = preview
		c.ListData.TotalRecords = totalRecords
		c.ListData.UploadedAt = &now
		c.ListData.UploadedBy = actor.CallerEmail
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, c.ID, EventListUploaded, map[string]any{
		"campaignName": c.Name,
		"totalRecords": totalRecords,
	})
	return c, nil
}

// AttachList attaches an existing list record owned by the effective actor.
// The list's own review status is copied onto the campaign at attach time,
// not referenced live: later changes to the list don't ripple back.
func (s *Service) AttachList(ctx context.Context, actor domain.Actor, id, listID string) (*domain.Campaign, error) {
	list, err := s.lists.GetList(ctx, actor.EffectiveUserID, listID)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s", ErrNotFound, listID)
	}

	return s.repo.Transition(ctx, actor.EffectiveUserID, id, func(c *domain.Campaign) (*domain.ApprovalRecord, error) {
		if c.ApprovalStatus != domain.ApprovalPendingList {
			return nil, fmt.Errorf("%w: campaign is not awaiting a list", ErrPreconditionFailed)
		}

		if list.Status == domain.ListRecordApproved {
			c.ListStatus = domain.ListApproved
		} else {
			c.ListStatus = domain.ListUploaded
		}
		c.ListData.AttachedListID = list.ID
		c.ListData.Preview = list.Preview
		c.ListData.TotalRecords = list.TotalRecords
		return nil, nil
	})
}

// ApproveList passes the list gate. Guard: a list must have been uploaded
// and not yet reviewed. Appends the list-stage approval record atomically
// with the status change.
func (s *Service) ApproveList(ctx context.Context, actor domain.Actor, id string) (*domain.Campaign, error) {
	now := time.Now().UTC()

	c, err := s.repo.Transition(ctx, actor.EffectiveUserID, id, func(c *domain.Campaign) (*domain.ApprovalRecord, error) {
		if c.ListStatus != domain.ListUploaded {
			return nil, fmt.Errorf("%w: list must be uploaded before approval", ErrPreconditionFailed)
		}

		c.ListStatus = domain.ListClientReviewed
		c.ApprovalStatus = domain.ApprovalPendingCopy

		return &domain.ApprovalRecord{
			ID:            uuid.New().String(),
			CampaignID:    c.ID,
			Stage:         domain.StageList,
			Status:        "approved",
			ApprovedBy:    actor.EffectiveUserID,
			ApproverEmail: actor.CallerEmail,
			ApprovedAt:    now,
			AuditLog: []domain.AuditAction{{
				Action:    "approved",
				Timestamp: now,
				Actor:     actor.CallerEmail,
				Details:   map[string]any{"impersonated": actor.Impersonating()},
			}},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, c.ID, EventListApproved, map[string]any{"campaignName": c.Name})
	return c, nil
}

// GenerateCopy runs the content gateway for a campaign and stores the
// result. The per-campaign lock fences the slow external call; the state
// write still serializes on the row lock. Gateway failure or timeout
// leaves the campaign untouched and returns a retriable error.
func (s *Service) GenerateCopy(ctx context.Context, actor domain.Actor, id string) (*domain.Campaign, error) {
	c, err := s.repo.Get(ctx, actor.EffectiveUserID, id)
	if err != nil {
		return nil, err
	}

	if len(c.IntermediaryOutputs) == 0 {
		return nil, fmt.Errorf("%w: intermediary outputs not generated", ErrPreconditionFailed)
	}

	if s.locks != nil {
		release, acquired, err := s.locks.TryLock(ctx, "generate:"+c.ID, generationLockTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		if !acquired {
			return nil, ErrGenerationInProgress
		}
		defer release()
	}

	outputs, err := s.gateway.GenerateCopy(ctx, c)
	if err != nil {
		logger.Error("copy generation failed",
			"campaign_id", c.ID,
			"play_code", c.PlayCode,
			"error", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	return s.repo.Transition(ctx, actor.EffectiveUserID, id, func(c *domain.Campaign) (*domain.ApprovalRecord, error) {
		if c.ApprovalStatus == domain.ApprovalLaunchApproved {
			return nil, fmt.Errorf("%w: campaign already approved for launch", ErrPreconditionFailed)
		}
		c.FinalOutputs = *outputs
		c.Status = domain.CampaignAssetsGenerated
		return nil, nil
	})
}

// CopyDecision is the outcome of ApproveCopy.
type CopyDecision struct {
	Campaign   *domain.Campaign   `json:"campaign"`
	Validation placeholder.Result `json:"validation"`
}

// ApproveCopy passes the copy gate. Placeholder validation is advisory:
// missing required tokens are recorded in the audit entry, never block the
// approval. The client is the final authority on their own copy.
//
// Re-approving an already-approved campaign with the same copy is a no-op
// that returns the same validation result and appends nothing.
func (s *Service) ApproveCopy(ctx context.Context, actor domain.Actor, id, editedCopy, comments string) (*CopyDecision, error) {
	if editedCopy == "" {
		return nil, fmt.Errorf("%w: edited_copy is required", ErrPreconditionFailed)
	}

	validation := placeholder.Validate(editedCopy)
	now := time.Now().UTC()

	applied := false
	c, err := s.repo.Transition(ctx, actor.EffectiveUserID, id, func(c *domain.Campaign) (*domain.ApprovalRecord, error) {
		if c.ApprovalStatus == domain.ApprovalLaunchApproved {
			// Already through the gate: idempotent no-op.
			return nil, nil
		}
		if c.Status != domain.CampaignAssetsGenerated {
			return nil, fmt.Errorf("%w: campaign copy must be generated before approval", ErrPreconditionFailed)
		}
		if c.ListStatus == domain.ListPendingUpload {
			return nil, fmt.Errorf("%w: list must be resolved before copy approval", ErrPreconditionFailed)
		}

		if !validation.IsValid {
			logger.Warn("copy approved with missing placeholders",
				"campaign_id", c.ID,
				"missing", strings.Join(validation.MissingPlaceholders, ", "))
		}

		details := map[string]any{
			"edited":       editedCopy != c.FinalOutputs.RawContent,
			"impersonated": actor.Impersonating(),
		}
		if tokens := placeholder.Extract(editedCopy); len(tokens) > 0 {
			details["placeholders"] = tokens
		}
		if len(validation.MissingPlaceholders) > 0 {
			details["missingPlaceholders"] = validation.MissingPlaceholders
		}
		if len(validation.Warnings) > 0 {
			details["warnings"] = validation.Warnings
		}
		if rec := placeholder.MissingRecommended(editedCopy); len(rec) > 0 {
			details["recommendedMissing"] = rec
		}

		c.ApprovedCopy = editedCopy
		c.ApprovalStatus = domain.ApprovalLaunchApproved
		c.Status = domain.CampaignLaunchApproved
		applied = true

		return &domain.ApprovalRecord{
			ID:            uuid.New().String(),
			CampaignID:    c.ID,
			Stage:         domain.StageCopy,
			Status:        "approved",
			ApprovedBy:    actor.EffectiveUserID,
			ApproverEmail: actor.CallerEmail,
			Comments:      comments,
			ApprovedAt:    now,
			AuditLog: []domain.AuditAction{{
				Action:    "approved",
				Timestamp: now,
				Actor:     actor.CallerEmail,
				Details:   details,
			}},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if applied {
		s.notify(ctx, c.ID, EventCopyApproved, map[string]any{
			"campaignName": c.Name,
			"playCode":     c.PlayCode,
			"approvedBy":   actor.CallerEmail,
		})
	}
	return &CopyDecision{Campaign: c, Validation: validation}, nil
}

// RejectCopy takes the explicit rejection path out of the copy gate.
func (s *Service) RejectCopy(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Campaign, error) {
	now := time.Now().UTC()

	c, err := s.repo.Transition(ctx, actor.EffectiveUserID, id, func(c *domain.Campaign) (*domain.ApprovalRecord, error) {
		if c.Status != domain.CampaignAssetsGenerated {
			return nil, fmt.Errorf("%w: campaign copy must be generated before rejection", ErrPreconditionFailed)
		}

		c.ApprovalStatus = domain.ApprovalRejected

		reason := comments
		if reason == "" {
			reason = "Rejected by user"
		}
		return &domain.ApprovalRecord{
			ID:            uuid.New().String(),
			CampaignID:    c.ID,
			Stage:         domain.StageCopy,
			Status:        "rejected",
			ApprovedBy:    actor.EffectiveUserID,
			ApproverEmail: actor.CallerEmail,
			Comments:      reason,
			ApprovedAt:    now,
			AuditLog: []domain.AuditAction{{
				Action:    "rejected",
				Timestamp: now,
				Actor:     actor.CallerEmail,
				Details:   map[string]any{"impersonated": actor.Impersonating()},
			}},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, c.ID, EventCopyRejected, map[string]any{"campaignName": c.Name})
	return c, nil
}

// UpdateIntermediaries overwrites the collaborative scratch payload. No
// status change; permitted at any stage before launch.
func (s *Service) UpdateIntermediaries(ctx context.Context, actor domain.Actor, id string, payload map[string]any) (*domain.Campaign, error) {
	return s.repo.Transition(ctx, actor.EffectiveUserID, id, func(c *domain.Campaign) (*domain.ApprovalRecord, error) {
		if c.Launched() {
			return nil, fmt.Errorf("%w: campaign already launched", ErrPreconditionFailed)
		}
		if payload == nil {
			payload = map[string]any{}
		}
		c.IntermediaryOutputs = payload
		return nil, nil
	})
}

// UpdateLaunchStatus records the launch handoff. Only launch-approved
// campaigns can move; going live enqueues the launch notification.
func (s *Service) UpdateLaunchStatus(ctx context.Context, actor domain.Actor, id string, status domain.LaunchStatus) (*domain.Campaign, error) {
	if status != domain.LaunchInProgress && status != domain.LaunchLive {
		return nil, fmt.Errorf("%w: invalid launch status %q", ErrPreconditionFailed, status)
	}

	c, err := s.repo.Transition(ctx, actor.EffectiveUserID, id, func(c *domain.Campaign) (*domain.ApprovalRecord, error) {
		if c.ApprovalStatus != domain.ApprovalLaunchApproved {
			return nil, fmt.Errorf("%w: campaign is not launch approved", ErrPreconditionFailed)
		}
		c.LaunchStatus = status
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	if status == domain.LaunchLive {
		s.notify(ctx, c.ID, EventCampaignLaunched, map[string]any{"campaignName": c.Name})
	}
	return c, nil
}

// PreviewList returns the redacted preview rows for a campaign's list.
func (s *Service) PreviewList(ctx context.Context, actor domain.Actor, id string) (*domain.ListData, error) {
	c, err := s.repo.Get(ctx, actor.EffectiveUserID, id)
	if err != nil {
		return nil, err
	}
	switch c.ListStatus {
	case domain.ListUploaded, domain.ListClientReviewed, domain.ListApproved:
		return &c.ListData, nil
	default:
		return nil, fmt.Errorf("%w: no list available for preview", ErrPreconditionFailed)
	}
}

// Approvals returns the approval history for a campaign the effective
// actor owns.
func (s *Service) Approvals(ctx context.Context, actor domain.Actor, id string) ([]domain.ApprovalRecord, error) {
	if _, err := s.repo.Get(ctx, actor.EffectiveUserID, id); err != nil {
		return nil, err
	}
	return s.repo.Approvals(ctx, actor.EffectiveUserID, id)
}

// GetExecution returns a single play execution scoped to the effective
// actor.
func (s *Service) GetExecution(ctx context.Context, actor domain.Actor, id string) (*domain.PlayExecution, error) {
	return s.repo.GetExecution(ctx, actor.EffectiveUserID, id)
}

// ApproveExecution passes a play execution through its approval gate.
// Executions carry one generated output and no list stage; the edited
// output the client signed off on is stored verbatim. Re-approving an
// approved execution is an idempotent no-op.
func (s *Service) ApproveExecution(ctx context.Context, actor domain.Actor, id, editedOutput string) (*domain.PlayExecution, error) {
	now := time.Now().UTC()

	applied := false
	e, err := s.repo.TransitionExecution(ctx, actor.EffectiveUserID, id, func(e *domain.PlayExecution) error {
		if e.Approved() {
			return nil
		}
		e.Status = domain.ExecutionApproved
		if editedOutput != "" {
			e.EditedOutput = editedOutput
		}
		e.ApprovedAt = &now
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applied {
		s.notify(ctx, e.ID, EventExecutionApproved, map[string]any{
			"playCode":     e.PlayCode,
			"playName":     e.PlayName,
			"approvedBy":   actor.CallerEmail,
			"editedOutput": e.EditedOutput,
			"impersonated": actor.Impersonating(),
		})
	}
	return e, nil
}

// Delete hard-deletes a campaign from whichever backing table holds it.
// The ref is resolved once; deleting an absent id returns ErrNotFound and
// is safe to repeat.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id string) error {
	ref, err := s.repo.ResolveRef(ctx, actor.EffectiveUserID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRef(ctx, actor.EffectiveUserID, ref); err != nil {
		return err
	}

	logger.Info("campaign deleted",
		"campaign_id", id,
		"kind", string(ref.Kind),
		"actor", actor.CallerEmail)
	return nil
}

// notify hands an event to the sink. Never blocks on downstream I/O and
// never surfaces an error to the transition path.
func (s *Service) notify(ctx context.Context, campaignID, eventType string, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(ctx, campaignID, eventType, payload)
}
