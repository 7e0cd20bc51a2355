package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fractionalops/claire-backend/internal/notify"
)

// OutboxRepo implements notify.Store against PostgreSQL.
type OutboxRepo struct{ db *sql.DB }

// NewOutboxRepo creates a Postgres-backed notification outbox.
func NewOutboxRepo(db *sql.DB) *OutboxRepo { return &OutboxRepo{db: db} }

func (r *OutboxRepo) InsertNotification(ctx context.Context, n *notify.Notification) error {
	payload, err := marshalField(n.Payload, "payload")
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO campaign_notifications
			(id, campaign_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, NOW())
	`, n.ID, n.CampaignID, n.EventType, payload, n.Status)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *OutboxRepo) PendingNotifications(ctx context.Context, limit, maxAttempts int) ([]notify.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, event_type, payload, status, attempts,
		       COALESCE(last_error,''), created_at
		FROM campaign_notifications
		WHERE status != 'sent' AND attempts < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("pending notifications: %w", err)
	}
	defer rows.Close()

	var out []notify.Notification
	for rows.Next() {
		var n notify.Notification
		var payload []byte
		if err := rows.Scan(
			&n.ID, &n.CampaignID, &n.EventType, &payload, &n.Status,
			&n.Attempts, &n.LastError, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if err := unmarshalInto(payload, &n.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *OutboxRepo) MarkSent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaign_notifications
		SET status = 'sent', sent_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *OutboxRepo) MarkFailed(ctx context.Context, id string, attempts int, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaign_notifications
		SET status = 'failed', attempts = $1, last_error = $2
		WHERE id = $3
	`, attempts, lastError, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}
