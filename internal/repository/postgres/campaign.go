package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fractionalops/claire-backend/internal/domain"
	"github.com/fractionalops/claire-backend/internal/service/lifecycle"
)

// CampaignRepo implements lifecycle.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = `
	id, user_id, play_code, campaign_name, COALESCE(campaign_type,''),
	campaign_brief, COALESCE(additional_brief,''),
	status, approval_status, list_status, launch_status,
	list_data, intermediary_outputs, final_outputs, COALESCE(approved_copy,''),
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var brief, listData, intermediary, finalOut []byte
	err := row.Scan(
		&c.ID, &c.UserID, &c.PlayCode, &c.Name, &c.CampaignType,
		&brief, &c.AdditionalBrief,
		&c.Status, &c.ApprovalStatus, &c.ListStatus, &c.LaunchStatus,
		&listData, &intermediary, &finalOut, &c.ApprovedCopy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalInto(brief, &c.Brief); err != nil {
		return nil, fmt.Errorf("decode campaign_brief: %w", err)
	}
	if err := unmarshalInto(listData, &c.ListData); err != nil {
		return nil, fmt.Errorf("decode list_data: %w", err)
	}
	if err := unmarshalInto(intermediary, &c.IntermediaryOutputs); err != nil {
		return nil, fmt.Errorf("decode intermediary_outputs: %w", err)
	}
	if err := unmarshalInto(finalOut, &c.FinalOutputs); err != nil {
		return nil, fmt.Errorf("decode final_outputs: %w", err)
	}
	if c.Brief == nil {
		c.Brief = map[string]any{}
	}
	if c.IntermediaryOutputs == nil {
		c.IntermediaryOutputs = map[string]any{}
	}
	return c, nil
}

func unmarshalInto(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func marshalField(v any, name string) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return raw, nil
}

func (r *CampaignRepo) Get(ctx context.Context, ownerID, id string) (*domain.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE id = $1 AND user_id = $2
	`, id, ownerID)

	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context, ownerID string, f lifecycle.ListFilter) ([]domain.Campaign, error) {
	q := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE user_id = $1`
	args := []interface{}{ownerID}
	idx := 2

	if f.PlayCode != "" {
		q += fmt.Sprintf(" AND play_code = $%d", idx)
		args = append(args, f.PlayCode)
		idx++
	}
	if f.Status != "" {
		q += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.ApprovalStatus != "" {
		q += fmt.Sprintf(" AND approval_status = $%d", idx)
		args = append(args, f.ApprovalStatus)
		idx++
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	brief, err := marshalField(c.Brief, "campaign_brief")
	if err != nil {
		return "", err
	}
	listData, err := marshalField(c.ListData, "list_data")
	if err != nil {
		return "", err
	}
	intermediary, err := marshalField(c.IntermediaryOutputs, "intermediary_outputs")
	if err != nil {
		return "", err
	}
	finalOut, err := marshalField(c.FinalOutputs, "final_outputs")
	if err != nil {
		return "", err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO campaigns
			(id, user_id, play_code, campaign_name, campaign_type, campaign_brief,
			 additional_brief, status, approval_status, list_status, launch_status,
			 list_data, intermediary_outputs, final_outputs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
	`, c.ID, c.UserID, c.PlayCode, c.Name, c.CampaignType, brief,
		c.AdditionalBrief, c.Status, c.ApprovalStatus, c.ListStatus, c.LaunchStatus,
		listData, intermediary, finalOut)
	if err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}
	return c.ID, nil
}

// Transition locks the campaign row, applies fn, and writes the result
// plus any approval record in one transaction. Guards inside fn run
// against the locked row, so concurrent transitions on the same campaign
// serialize here.
func (r *CampaignRepo) Transition(ctx context.Context, ownerID, id string, fn lifecycle.TransitionFunc) (*domain.Campaign, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, id, ownerID)

	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock campaign: %w", err)
	}

	rec, err := fn(c)
	if err != nil {
		return nil, err
	}

	listData, err := marshalField(c.ListData, "list_data")
	if err != nil {
		return nil, err
	}
	intermediary, err := marshalField(c.IntermediaryOutputs, "intermediary_outputs")
	if err != nil {
		return nil, err
	}
	finalOut, err := marshalField(c.FinalOutputs, "final_outputs")
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE campaigns
		SET status = $1, approval_status = $2, list_status = $3, launch_status = $4,
		    list_data = $5, intermediary_outputs = $6, final_outputs = $7,
		    approved_copy = $8, updated_at = NOW()
		WHERE id = $9 AND user_id = $10
	`, c.Status, c.ApprovalStatus, c.ListStatus, c.LaunchStatus,
		listData, intermediary, finalOut, c.ApprovedCopy, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update campaign: %w", err)
	}

	if rec != nil {
		if err := insertApproval(ctx, tx, rec); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return c, nil
}

func insertApproval(ctx context.Context, tx *sql.Tx, rec *domain.ApprovalRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	audit, err := marshalField(rec.AuditLog, "audit_log")
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO campaign_approvals
			(id, campaign_id, approval_stage, status, approved_by, approver_email,
			 comments, approved_at, audit_log)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.CampaignID, rec.Stage, rec.Status, rec.ApprovedBy,
		rec.ApproverEmail, rec.Comments, rec.ApprovedAt, audit)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

// refTables maps each ref kind to its backing table. The schema grew
// three campaign-shaped tables over time; every one is user-scoped.
var refTables = []struct {
	kind  domain.RefKind
	table string
}{
	{domain.RefCampaign, "campaigns"},
	{domain.RefOutbound, "outbound_campaigns"},
	{domain.RefPlayExecution, "play_executions"},
}

func (r *CampaignRepo) ResolveRef(ctx context.Context, ownerID, id string) (domain.CampaignRef, error) {
	for _, t := range refTables {
		var found string
		err := r.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT id FROM %s WHERE id = $1 AND user_id = $2`, t.table),
			id, ownerID).Scan(&found)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return domain.CampaignRef{}, fmt.Errorf("resolve ref in %s: %w", t.table, err)
		}
		return domain.CampaignRef{Kind: t.kind, ID: found}, nil
	}
	return domain.CampaignRef{}, lifecycle.ErrNotFound
}

func (r *CampaignRepo) DeleteRef(ctx context.Context, ownerID string, ref domain.CampaignRef) error {
	var table string
	for _, t := range refTables {
		if t.kind == ref.Kind {
			table = t.table
			break
		}
	}
	if table == "" {
		return fmt.Errorf("unknown ref kind %q", ref.Kind)
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, table),
		ref.ID, ownerID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) Approvals(ctx context.Context, ownerID, campaignID string) ([]domain.ApprovalRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.campaign_id, a.approval_stage, a.status, a.approved_by,
		       a.approver_email, COALESCE(a.comments,''), a.approved_at, a.audit_log
		FROM campaign_approvals a
		JOIN campaigns c ON c.id = a.campaign_id
		WHERE a.campaign_id = $1 AND c.user_id = $2
		ORDER BY a.approved_at ASC
	`, campaignID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []domain.ApprovalRecord
	for rows.Next() {
		var rec domain.ApprovalRecord
		var audit []byte
		if err := rows.Scan(
			&rec.ID, &rec.CampaignID, &rec.Stage, &rec.Status, &rec.ApprovedBy,
			&rec.ApproverEmail, &rec.Comments, &rec.ApprovedAt, &audit,
		); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		if err := unmarshalInto(audit, &rec.AuditLog); err != nil {
			return nil, fmt.Errorf("decode audit_log: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
