package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fractionalops/claire-backend/internal/domain"
	"github.com/fractionalops/claire-backend/internal/service/lists"
)

// ListRepo implements lists.Repository against PostgreSQL. It also
// satisfies the lifecycle engine's list lookup.
type ListRepo struct{ db *sql.DB }

// NewListRepo creates a Postgres-backed list repository.
func NewListRepo(db *sql.DB) *ListRepo { return &ListRepo{db: db} }

const listColumns = `id, user_id, name, list_type, status, preview, total_records, created_at`

func (r *ListRepo) GetList(ctx context.Context, ownerID, id string) (*domain.ListRecord, error) {
	l := &domain.ListRecord{}
	var preview []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT `+listColumns+`
		FROM campaign_lists
		WHERE id = $1 AND user_id = $2
	`, id, ownerID).Scan(
		&l.ID, &l.UserID, &l.Name, &l.ListType, &l.Status,
		&preview, &l.TotalRecords, &l.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, lists.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	if err := unmarshalInto(preview, &l.Preview); err != nil {
		return nil, fmt.Errorf("decode preview: %w", err)
	}
	return l, nil
}

func (r *ListRepo) ListLists(ctx context.Context, ownerID string) ([]domain.ListRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+listColumns+`
		FROM campaign_lists
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	var out []domain.ListRecord
	for rows.Next() {
		var l domain.ListRecord
		var preview []byte
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.Name, &l.ListType, &l.Status,
			&preview, &l.TotalRecords, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		if err := unmarshalInto(preview, &l.Preview); err != nil {
			return nil, fmt.Errorf("decode preview: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *ListRepo) CreateList(ctx context.Context, l *domain.ListRecord) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	preview, err := marshalField(l.Preview, "preview")
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO campaign_lists
			(id, user_id, name, list_type, status, preview, total_records, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, l.ID, l.UserID, l.Name, l.ListType, l.Status, preview, l.TotalRecords)
	if err != nil {
		return fmt.Errorf("create list: %w", err)
	}
	return nil
}

func (r *ListRepo) UpdateListStatus(ctx context.Context, ownerID, id string, status domain.ListRecordStatus) (*domain.ListRecord, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaign_lists SET status = $1
		WHERE id = $2 AND user_id = $3
	`, status, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update list status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, lists.ErrNotFound
	}
	return r.GetList(ctx, ownerID, id)
}

func (r *ListRepo) DeleteList(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM campaign_lists WHERE id = $1 AND user_id = $2
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return lists.ErrNotFound
	}
	return nil
}
