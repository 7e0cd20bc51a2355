package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fractionalops/claire-backend/internal/actor"
	"github.com/fractionalops/claire-backend/internal/domain"
	"github.com/fractionalops/claire-backend/internal/service/lifecycle"
	"github.com/fractionalops/claire-backend/internal/service/lists"
)

const testSecret = "handler-test-secret"

// In-memory backends so handler tests exercise the full stack below the
// transport without a database.

type memCampaigns struct {
	mu         sync.Mutex
	campaigns  map[string]*domain.Campaign
	executions map[string]*domain.PlayExecution
	approvals  map[string][]domain.ApprovalRecord
}

func newMemCampaigns() *memCampaigns {
	return &memCampaigns{
		campaigns:  map[string]*domain.Campaign{},
		executions: map[string]*domain.PlayExecution{},
		approvals:  map[string][]domain.ApprovalRecord{},
	}
}

func (m *memCampaigns) Get(_ context.Context, ownerID, id string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.UserID != ownerID {
		return nil, lifecycle.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaigns) List(_ context.Context, ownerID string, f lifecycle.ListFilter) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.UserID != ownerID {
			continue
		}
		if f.PlayCode != "" && c.PlayCode != f.PlayCode {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *memCampaigns) Create(_ context.Context, c *domain.Campaign) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaigns[c.ID] = &cp
	return c.ID, nil
}

func (m *memCampaigns) Transition(_ context.Context, ownerID, id string, fn lifecycle.TransitionFunc) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.UserID != ownerID {
		return nil, lifecycle.ErrNotFound
	}
	work := *c
	rec, err := fn(&work)
	if err != nil {
		return nil, err
	}
	m.campaigns[id] = &work
	if rec != nil {
		m.approvals[id] = append(m.approvals[id], *rec)
	}
	cp := work
	return &cp, nil
}

func (m *memCampaigns) ResolveRef(_ context.Context, ownerID, id string) (domain.CampaignRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.UserID != ownerID {
		return domain.CampaignRef{}, lifecycle.ErrNotFound
	}
	return domain.CampaignRef{Kind: domain.RefCampaign, ID: id}, nil
}

func (m *memCampaigns) DeleteRef(_ context.Context, ownerID string, ref domain.CampaignRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[ref.ID]
	if !ok || c.UserID != ownerID {
		return lifecycle.ErrNotFound
	}
	delete(m.campaigns, ref.ID)
	return nil
}

func (m *memCampaigns) Approvals(_ context.Context, ownerID, campaignID string) ([]domain.ApprovalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ApprovalRecord(nil), m.approvals[campaignID]...), nil
}

func (m *memCampaigns) GetExecution(_ context.Context, ownerID, id string) (*domain.PlayExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok || e.UserID != ownerID {
		return nil, lifecycle.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memCampaigns) TransitionExecution(_ context.Context, ownerID, id string, fn lifecycle.ExecutionTransitionFunc) (*domain.PlayExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok || e.UserID != ownerID {
		return nil, lifecycle.ErrNotFound
	}
	work := *e
	if err := fn(&work); err != nil {
		return nil, err
	}
	m.executions[id] = &work
	cp := work
	return &cp, nil
}

type memListRepo struct {
	mu      sync.Mutex
	records map[string]*domain.ListRecord
}

func (m *memListRepo) GetList(_ context.Context, ownerID, id string) (*domain.ListRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.records[id]
	if !ok || l.UserID != ownerID {
		return nil, lists.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memListRepo) ListLists(_ context.Context, ownerID string) ([]domain.ListRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ListRecord
	for _, l := range m.records {
		if l.UserID == ownerID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memListRepo) CreateList(_ context.Context, l *domain.ListRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.records[l.ID] = &cp
	return nil
}

func (m *memListRepo) UpdateListStatus(_ context.Context, ownerID, id string, status domain.ListRecordStatus) (*domain.ListRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.records[id]
	if !ok || l.UserID != ownerID {
		return nil, lists.ErrNotFound
	}
	l.Status = status
	cp := *l
	return &cp, nil
}

func (m *memListRepo) DeleteList(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.records[id]
	if !ok || l.UserID != ownerID {
		return lists.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

type memUsers struct{ users map[string]*domain.User }

func (m *memUsers) GetUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

type stubGateway struct{}

func (stubGateway) GenerateCopy(_ context.Context, _ *domain.Campaign) (*domain.FinalOutputs, error) {
	return &domain.FinalOutputs{RawContent: "Hi {{first_name}},\n\n{{signature}}", AgentName: "writer"}, nil
}

func newTestHandler(t *testing.T) (http.Handler, *memCampaigns) {
	t.Helper()
	repo := newMemCampaigns()
	listRepo := &memListRepo{records: map[string]*domain.ListRecord{}}
	listSvc := lists.NewService(listRepo)
	campaignSvc := lifecycle.NewService(repo, listRepo, stubGateway{}, nil, nil)

	users := &memUsers{users: map[string]*domain.User{
		"user-1":  {ID: "user-1", Email: "client@acme.com"},
		"user-2":  {ID: "user-2", Email: "other@beta.io"},
		"admin-1": {ID: "admin-1", Email: "ops@fractionalops.com"},
	}}
	resolver := actor.NewResolver(users, testSecret, []string{"ops@fractionalops.com"})

	return SetupRoutes(NewHandlers(campaignSvc, listSvc, resolver)), repo
}

func token(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthNeedsNoAuth(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRejectsMissingToken(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/api/campaigns", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "unauthorized", body["error"])
}

func TestImpersonationByNonAdminIsForbidden(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/api/campaigns?impersonate=user-2", token(t, "user-1"), nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeBody(t, rec)["error"])
}

func TestCreateCampaign(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/campaigns", token(t, "user-1"), map[string]any{
		"playCode":     "PLAY-7",
		"campaignName": "Fintech outreach",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	campaign := body["campaign"].(map[string]any)
	assert.Equal(t, "user-1", campaign["user_id"])
	assert.Equal(t, "draft", campaign["status"])
}

func TestCreateCampaignValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/campaigns", token(t, "user-1"), map[string]any{
		"campaignName": "No play code",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "precondition failed", decodeBody(t, rec)["error"])
}

func createCampaign(t *testing.T, h http.Handler, bearer string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/campaigns", bearer, map[string]any{
		"playCode":     "PLAY-7",
		"campaignName": "Fintech outreach",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeBody(t, rec)["campaign"].(map[string]any)["id"].(string)
}

func TestCrossTenantAccessIsNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createCampaign(t, h, token(t, "user-1"))

	rec := doJSON(t, h, http.MethodGet, "/api/campaigns/"+id, token(t, "user-2"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminImpersonationReachesClientCampaign(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createCampaign(t, h, token(t, "user-1"))

	rec := doJSON(t, h, http.MethodGet, "/api/campaigns/"+id+"?impersonate=user-1", token(t, "admin-1"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFullApprovalFlow(t *testing.T) {
	h, _ := newTestHandler(t)
	bearer := token(t, "user-1")
	id := createCampaign(t, h, bearer)

	rec := doJSON(t, h, http.MethodPost, "/api/campaigns/"+id+"/list-questions", bearer, map[string]any{
		"hasAccountList": true, "hasProspectList": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	campaign := decodeBody(t, rec)["campaign"].(map[string]any)
	assert.Equal(t, "not_required", campaign["list_status"])
	assert.Equal(t, "pending_copy", campaign["approval_status"])

	rec = doJSON(t, h, http.MethodPut, "/api/campaigns/"+id+"/intermediaries", bearer, map[string]any{
		"intermediaryOutputs": map[string]any{"hook": "We noticed your hiring spree"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/campaigns/"+id+"/generate-copy", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/campaigns/"+id+"/approve-copy", bearer, map[string]any{
		"editedCopy": "Hi {{first_name}} at {{company_name}}.\n\n{{signature}}",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	validation := body["validation"].(map[string]any)
	assert.Equal(t, true, validation["isValid"])
	campaign = body["campaign"].(map[string]any)
	assert.Equal(t, "launch_approved", campaign["approval_status"])

	rec = doJSON(t, h, http.MethodGet, "/api/campaigns/"+id+"/approvals", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	approvals := decodeBody(t, rec)["approvals"].([]any)
	assert.Len(t, approvals, 1)
}

func TestApproveCopyReportsMissingPlaceholders(t *testing.T) {
	h, _ := newTestHandler(t)
	bearer := token(t, "user-1")
	id := createCampaign(t, h, bearer)

	doJSON(t, h, http.MethodPost, "/api/campaigns/"+id+"/list-questions", bearer, map[string]any{
		"hasAccountList": true, "hasProspectList": true,
	})
	doJSON(t, h, http.MethodPut, "/api/campaigns/"+id+"/intermediaries", bearer, map[string]any{
		"intermediaryOutputs": map[string]any{"hook": "x"},
	})
	doJSON(t, h, http.MethodPost, "/api/campaigns/"+id+"/generate-copy", bearer, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/campaigns/"+id+"/approve-copy", bearer, map[string]any{
		"editedCopy": "Totally generic pitch with no tokens.",
	})
	require.Equal(t, http.StatusOK, rec.Code, "missing placeholders are advisory, not blocking")
	validation := decodeBody(t, rec)["validation"].(map[string]any)
	assert.Equal(t, false, validation["isValid"])
	assert.Len(t, validation["missingPlaceholders"], 3)
}

func TestUploadStandaloneListAsAdmin(t *testing.T) {
	h, _ := newTestHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Q3 prospects"))
	require.NoError(t, mw.WriteField("listType", "prospect"))
	part, err := mw.CreateFormFile("file", "prospects.csv")
	require.NoError(t, err)
	fmt.Fprint(part, "Company,Name,Title\nAcme,Jamie,CTO\n")
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/lists?impersonate=user-1", &buf)
	req.Header.Set("Authorization", "Bearer "+token(t, "admin-1"))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	list := decodeBody(t, rec)["list"].(map[string]any)
	assert.Equal(t, "user-1", list["user_id"])
	assert.Equal(t, float64(1), list["total_records"])
}

func TestUploadStandaloneListAsClientIsForbidden(t *testing.T) {
	h, _ := newTestHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "prospects.csv")
	require.NoError(t, err)
	fmt.Fprint(part, "Company,Name,Title\nAcme,Jamie,CTO\n")
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/lists", &buf)
	req.Header.Set("Authorization", "Bearer "+token(t, "user-1"))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApproveExecution(t *testing.T) {
	h, repo := newTestHandler(t)
	repo.executions["exec-1"] = &domain.PlayExecution{
		ID:          "exec-1",
		UserID:      "user-1",
		PlayCode:    "PLAY-7",
		Status:      domain.ExecutionPendingApproval,
		FinalOutput: "Hi {{first_name}}",
		Payload:     map[string]any{},
	}

	rec := doJSON(t, h, http.MethodPost, "/api/executions/exec-1/approve", token(t, "user-1"), map[string]any{
		"editedOutput": "Hi {{first_name}}, edited",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	execution := decodeBody(t, rec)["execution"].(map[string]any)
	assert.Equal(t, "approved", execution["status"])
	assert.Equal(t, "Hi {{first_name}}, edited", execution["edited_output"])

	rec = doJSON(t, h, http.MethodGet, "/api/executions/exec-1", token(t, "user-1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestApproveExecutionCrossTenantIsNotFound(t *testing.T) {
	h, repo := newTestHandler(t)
	repo.executions["exec-1"] = &domain.PlayExecution{
		ID:      "exec-1",
		UserID:  "user-1",
		Status:  domain.ExecutionPendingApproval,
		Payload: map[string]any{},
	}

	rec := doJSON(t, h, http.MethodPost, "/api/executions/exec-1/approve", token(t, "user-2"), map[string]any{
		"editedOutput": "x",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCampaign(t *testing.T) {
	h, _ := newTestHandler(t)
	bearer := token(t, "user-1")
	id := createCampaign(t, h, bearer)

	rec := doJSON(t, h, http.MethodDelete, "/api/campaigns/"+id, bearer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/campaigns/"+id, bearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
