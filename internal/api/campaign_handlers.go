package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fractionalops/claire-backend/internal/domain"
	"github.com/fractionalops/claire-backend/internal/pkg/httputil"
	"github.com/fractionalops/claire-backend/internal/service/lifecycle"
)

func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var input lifecycle.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}

	c, err := h.campaigns.Create(r.Context(), requestActor(r), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, httputil.Envelope{"campaign": c})
}

func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := lifecycle.ListFilter{
		PlayCode:       q.Get("playCode"),
		Status:         q.Get("status"),
		ApprovalStatus: q.Get("approvalStatus"),
	}

	out, err := h.campaigns.List(r.Context(), requestActor(r), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if out == nil {
		out = []domain.Campaign{}
	}
	httputil.OK(w, httputil.Envelope{"campaigns": out, "count": len(out)})
}

func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.Get(r.Context(), requestActor(r), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"campaign": c})
}

func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.campaigns.Delete(r.Context(), requestActor(r), chi.URLParam(r, "campaignID")); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"deleted": true})
}

func (h *Handlers) AnswerListQuestions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HasAccountList  bool `json:"hasAccountList"`
		HasProspectList bool `json:"hasProspectList"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	c, err := h.campaigns.AnswerListQuestions(r.Context(), requestActor(r),
		chi.URLParam(r, "campaignID"), body.HasAccountList, body.HasProspectList)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"campaign": c})
}

func (h *Handlers) AttachList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ListID string `json:"listId"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if body.ListID == "" {
		httputil.BadRequest(w, "listId is required")
		return
	}

	c, err := h.campaigns.AttachList(r.Context(), requestActor(r),
		chi.URLParam(r, "campaignID"), body.ListID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"campaign": c})
}

func (h *Handlers) ApproveList(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.ApproveList(r.Context(), requestActor(r), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"campaign": c})
}

func (h *Handlers) ListPreview(w http.ResponseWriter, r *http.Request) {
	data, err := h.campaigns.PreviewList(r.Context(), requestActor(r), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{
		"preview":      data.Preview,
		"totalRecords": data.TotalRecords,
		"uploadedAt":   data.UploadedAt,
	})
}

func (h *Handlers) GenerateCopy(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.GenerateCopy(r.Context(), requestActor(r), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"campaign": c})
}

func (h *Handlers) ApproveCopy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EditedCopy string `json:"editedCopy"`
		Comments   string `json:"comments"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	dec, err := h.campaigns.ApproveCopy(r.Context(), requestActor(r),
		chi.URLParam(r, "campaignID"), body.EditedCopy, body.Comments)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{
		"campaign":   dec.Campaign,
		"validation": dec.Validation,
	})
}

func (h *Handlers) RejectCopy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Comments string `json:"comments"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	c, err := h.campaigns.RejectCopy(r.Context(), requestActor(r),
		chi.URLParam(r, "campaignID"), body.Comments)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"campaign": c})
}

func (h *Handlers) UpdateIntermediaries(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IntermediaryOutputs map[string]any `json:"intermediaryOutputs"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	c, err := h.campaigns.UpdateIntermediaries(r.Context(), requestActor(r),
		chi.URLParam(r, "campaignID"), body.IntermediaryOutputs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"campaign": c})
}

func (h *Handlers) UpdateLaunchStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LaunchStatus string `json:"launchStatus"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	c, err := h.campaigns.UpdateLaunchStatus(r.Context(), requestActor(r),
		chi.URLParam(r, "campaignID"), domain.LaunchStatus(body.LaunchStatus))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"campaign": c})
}

func (h *Handlers) ListApprovals(w http.ResponseWriter, r *http.Request) {
	out, err := h.campaigns.Approvals(r.Context(), requestActor(r), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if out == nil {
		out = []domain.ApprovalRecord{}
	}
	httputil.OK(w, httputil.Envelope{"approvals": out})
}
