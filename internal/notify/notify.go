// Package notify delivers campaign lifecycle events to the operations
// webhook. Events are enqueued into a database outbox inside the request
// path and delivered asynchronously by the dispatcher, so a slow or dead
// webhook never blocks a state transition.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fractionalops/claire-backend/internal/pkg/logger"
)

// Delivery states of an outbox row.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Notification is one outbox row.
type Notification struct {
	ID         string         `json:"id"`
	CampaignID string         `json:"campaign_id"`
	EventType  string         `json:"event_type"`
	Payload    map[string]any `json:"payload"`
	Status     string         `json:"status"`
	Attempts   int            `json:"attempts"`
	LastError  string         `json:"last_error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Store is the outbox persistence contract.
type Store interface {
	InsertNotification(ctx context.Context, n *Notification) error
	// PendingNotifications returns up to limit undelivered rows whose
	// attempt budget is not exhausted, oldest first.
	PendingNotifications(ctx context.Context, limit, maxAttempts int) ([]Notification, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, attempts int, lastError string) error
}

// Outbox enqueues events for later delivery. It satisfies the lifecycle
// engine's notifier contract: enqueue failures are logged and swallowed,
// never surfaced to the transition that triggered them.
type Outbox struct {
	store Store
}

func NewOutbox(store Store) *Outbox {
	return &Outbox{store: store}
}

func (o *Outbox) Enqueue(ctx context.Context, campaignID, eventType string, payload map[string]any) {
	n := &Notification{
		ID:         uuid.New().String(),
		CampaignID: campaignID,
		EventType:  eventType,
		Payload:    payload,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.store.InsertNotification(ctx, n); err != nil {
		logger.Error("enqueue notification failed",
			"campaign_id", campaignID,
			"event_type", eventType,
			"error", err.Error())
	}
}
