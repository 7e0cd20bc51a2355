package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fractionalops/claire-backend/internal/pkg/httpretry"
	"github.com/fractionalops/claire-backend/internal/pkg/logger"
)

const dispatchBatchSize = 25

// Dispatcher drains the outbox and POSTs each event to the webhook as
// JSON. Rows that keep failing past the attempt budget are parked as
// failed and logged; delivery is best effort by design of the callers.
type Dispatcher struct {
	store        Store
	client       httpretry.HTTPDoer
	webhookURL   string
	pollInterval time.Duration
	maxAttempts  int
}

// NewDispatcher builds a dispatcher. A nil client gets a retrying default.
func NewDispatcher(store Store, client httpretry.HTTPDoer, webhookURL string, pollInterval time.Duration, maxAttempts int) *Dispatcher {
	if client == nil {
		client = httpretry.NewRetryClient(nil, 2)
	}
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Dispatcher{
		store:        store,
		client:       client,
		webhookURL:   webhookURL,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
	}
}

// Run polls until ctx is cancelled. One batch is in flight at a time.
func (d *Dispatcher) Run(ctx context.Context) {
	logger.Info("notification dispatcher started",
		"poll_interval", d.pollInterval.String(),
		"max_attempts", d.maxAttempts)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("notification dispatcher stopped")
			return
		case <-ticker.C:
			d.DispatchBatch(ctx)
		}
	}
}

// DispatchBatch delivers one batch of pending rows. Exported so tests and
// the worker's shutdown path can drain synchronously.
func (d *Dispatcher) DispatchBatch(ctx context.Context) {
	pending, err := d.store.PendingNotifications(ctx, dispatchBatchSize, d.maxAttempts)
	if err != nil {
		logger.Error("load pending notifications failed", "error", err.Error())
		return
	}

	for i := range pending {
		n := &pending[i]
		if err := d.deliver(ctx, n); err != nil {
			n.Attempts++
			if markErr := d.store.MarkFailed(ctx, n.ID, n.Attempts, err.Error()); markErr != nil {
				logger.Error("mark notification failed", "id", n.ID, "error", markErr.Error())
			}
			logger.Warn("notification delivery failed",
				"id", n.ID,
				"event_type", n.EventType,
				"attempts", n.Attempts,
				"error", err.Error())
			continue
		}
		if err := d.store.MarkSent(ctx, n.ID); err != nil {
			logger.Error("mark notification sent", "id", n.ID, "error", err.Error())
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(map[string]any{
		"type":       n.EventType,
		"campaignId": n.CampaignID,
		"payload":    n.Payload,
		"sentAt":     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
