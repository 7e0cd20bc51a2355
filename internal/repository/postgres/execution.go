package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fractionalops/claire-backend/internal/domain"
	"github.com/fractionalops/claire-backend/internal/service/lifecycle"
)

const executionColumns = `
	id, user_id, COALESCE(play_code,''), COALESCE(play_name,''), status,
	payload, COALESCE(final_output,''), COALESCE(edited_output,''),
	approved_at, created_at, updated_at`

func scanExecution(row rowScanner) (*domain.PlayExecution, error) {
	e := &domain.PlayExecution{}
	var payload []byte
	err := row.Scan(
		&e.ID, &e.UserID, &e.PlayCode, &e.PlayName, &e.Status,
		&payload, &e.FinalOutput, &e.EditedOutput,
		&e.ApprovedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalInto(payload, &e.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	return e, nil
}

func (r *CampaignRepo) GetExecution(ctx context.Context, ownerID, id string) (*domain.PlayExecution, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+executionColumns+`
		FROM play_executions
		WHERE id = $1 AND user_id = $2
	`, id, ownerID)

	e, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return e, nil
}

// TransitionExecution mirrors Transition for the play_executions table:
// row lock, mutate, single atomic update.
func (r *CampaignRepo) TransitionExecution(ctx context.Context, ownerID, id string, fn lifecycle.ExecutionTransitionFunc) (*domain.PlayExecution, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin execution transition: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+executionColumns+`
		FROM play_executions
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, id, ownerID)

	e, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock execution: %w", err)
	}

	if err := fn(e); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE play_executions
		SET status = $1, edited_output = $2, approved_at = $3, updated_at = NOW()
		WHERE id = $4 AND user_id = $5
	`, e.Status, e.EditedOutput, e.ApprovedAt, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update execution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit execution transition: %w", err)
	}
	return e, nil
}
