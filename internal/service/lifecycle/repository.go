package lifecycle

import (
	"context"
	"time"

	"github.com/fractionalops/claire-backend/internal/domain"
)

// TransitionFunc mutates a freshly locked campaign in place. Returning an
// error aborts the transaction with no write. A non-nil approval record is
// appended atomically with the campaign update. Returning (nil, nil) with
// no mutation is a legal no-op for idempotent re-application.
type TransitionFunc func(c *domain.Campaign) (*domain.ApprovalRecord, error)

// ExecutionTransitionFunc mutates a freshly locked play execution in
// place. Returning an error aborts the transaction with no write.
type ExecutionTransitionFunc func(e *domain.PlayExecution) error

// Repository is the data access contract for campaigns. Implementations
// must be safe for concurrent use and must enforce owner scoping on every
// query: a row that exists but belongs to another tenant behaves exactly
// like an absent row.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't
	// exist or isn't owned by ownerID.
	Get(ctx context.Context, ownerID, id string) (*domain.Campaign, error)

	// List returns campaigns for ownerID matching the filter, newest first.
	List(ctx context.Context, ownerID string, f ListFilter) ([]domain.Campaign, error)

	// Create inserts a new campaign and returns its id.
	Create(ctx context.Context, c *domain.Campaign) (string, error)

	// Transition locks the campaign row, applies fn to the fresh state,
	// and commits the mutation plus any approval record as one
	// transaction. Guard checks inside fn therefore see current state,
	// never state read earlier in the request.
	Transition(ctx context.Context, ownerID, id string, fn TransitionFunc) (*domain.Campaign, error)

	// ResolveRef probes the backing tables once and returns a tagged
	// reference for the owner-scoped entity, or ErrNotFound.
	ResolveRef(ctx context.Context, ownerID, id string) (domain.CampaignRef, error)

	// DeleteRef hard-deletes the referenced row. Returns ErrNotFound if
	// the row is already gone.
	DeleteRef(ctx context.Context, ownerID string, ref domain.CampaignRef) error

	// Approvals returns the append-only approval history for a campaign,
	// oldest first.
	Approvals(ctx context.Context, ownerID, campaignID string) ([]domain.ApprovalRecord, error)

	// GetExecution returns a single play execution, owner-scoped the same
	// way as Get.
	GetExecution(ctx context.Context, ownerID, id string) (*domain.PlayExecution, error)

	// TransitionExecution locks the execution row, applies fn, and commits
	// the mutation. Same serialization guarantees as Transition.
	TransitionExecution(ctx context.Context, ownerID, id string, fn ExecutionTransitionFunc) (*domain.PlayExecution, error)
}

// ListFilter controls filtering for campaign lists.
type ListFilter struct {
	PlayCode       string
	Status         string
	ApprovalStatus string
}

// ListStore is the subset of list storage the engine needs when attaching
// an existing list to a campaign.
type ListStore interface {
	// GetList returns the list record, or an error if absent or not owned
	// by ownerID.
	GetList(ctx context.Context, ownerID, id string) (*domain.ListRecord, error)
}

// Gateway generates copy for a campaign via the external content service.
// Implementations must respect ctx deadlines; a failure or timeout leaves
// the campaign untouched.
type Gateway interface {
	GenerateCopy(ctx context.Context, c *domain.Campaign) (*domain.FinalOutputs, error)
}

// Notifier is the best-effort notification sink. Enqueue must never block
// the caller on downstream I/O and must never return an error to the
// transition path; failures are the sink's problem to log.
type Notifier interface {
	Enqueue(ctx context.Context, campaignID, eventType string, payload map[string]any)
}

// Locker fences the long-running copy-generation section per campaign.
type Locker interface {
	// TryLock attempts to take the named lock. On success it returns a
	// release func and true. When the lock is held elsewhere it returns
	// (nil, false, nil).
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}
