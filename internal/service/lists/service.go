// Package lists manages standalone prospect and account lists: upload,
// review, approval, and lookup for attachment to campaigns.
package lists

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fractionalops/claire-backend/internal/domain"
	"github.com/fractionalops/claire-backend/internal/pkg/logger"
)

// Sentinel errors for the lists service.
var (
	ErrNotFound           = errors.New("list not found")
	ErrForbidden          = errors.New("forbidden")
	ErrPreconditionFailed = errors.New("precondition failed")
)

// Repository is the data access contract for standalone lists.
type Repository interface {
	GetList(ctx context.Context, ownerID, id string) (*domain.ListRecord, error)
	ListLists(ctx context.Context, ownerID string) ([]domain.ListRecord, error)
	CreateList(ctx context.Context, l *domain.ListRecord) error
	UpdateListStatus(ctx context.Context, ownerID, id string, status domain.ListRecordStatus) (*domain.ListRecord, error)
	DeleteList(ctx context.Context, ownerID, id string) error
}

// Service manages standalone lists.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Upload parses a CSV and stores a new list for the target owner. Uploads
// are an admin action: architects build lists on behalf of clients.
func (s *Service) Upload(ctx context.Context, actor domain.Actor, name, listType string, file io.Reader) (*domain.ListRecord, error) {
	if !actor.IsAdmin {
		return nil, fmt.Errorf("%w: admin access required to upload lists", ErrForbidden)
	}
	if listType != "account" && listType != "prospect" {
		return nil, fmt.Errorf("%w: list_type must be account or prospect", ErrPreconditionFailed)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrPreconditionFailed)
	}

	parsed, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreconditionFailed, err)
	}

	l := &domain.ListRecord{
		ID:           uuid.New().String(),
		UserID:       actor.EffectiveUserID,
		Name:         name,
		ListType:     listType,
		Status:       domain.ListRecordDraft,
		Preview:      parsed.Preview,
		TotalRecords: parsed.TotalRecords,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateList(ctx, l); err != nil {
		return nil, err
	}

	logger.Info("list uploaded",
		"list_id", l.ID,
		"list_type", listType,
		"total_records", l.TotalRecords,
		"uploaded_by", actor.CallerEmail)
	return l, nil
}

// Get returns a single list scoped to the effective actor.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (*domain.ListRecord, error) {
	return s.repo.GetList(ctx, actor.EffectiveUserID, id)
}

// List returns the effective actor's lists.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.ListRecord, error) {
	return s.repo.ListLists(ctx, actor.EffectiveUserID)
}

// Approve marks a draft list as reviewed and approved by the client.
func (s *Service) Approve(ctx context.Context, actor domain.Actor, id string) (*domain.ListRecord, error) {
	l, err := s.repo.GetList(ctx, actor.EffectiveUserID, id)
	if err != nil {
		return nil, err
	}
	if l.Status == domain.ListRecordApproved {
		return l, nil
	}
	return s.repo.UpdateListStatus(ctx, actor.EffectiveUserID, id, domain.ListRecordApproved)
}

// Delete removes a list. Campaigns that already attached it keep their
// copied preview; attachment copies state rather than referencing it.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id string) error {
	return s.repo.DeleteList(ctx, actor.EffectiveUserID, id)
}
