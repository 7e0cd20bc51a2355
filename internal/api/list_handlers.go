package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fractionalops/claire-backend/internal/domain"
	"github.com/fractionalops/claire-backend/internal/pkg/httputil"
	"github.com/fractionalops/claire-backend/internal/service/lists"
)

// Uploads arrive as multipart/form-data with the CSV in a "file" part.
const maxUploadBytes = 32 << 20 // 32 MB

func (h *Handlers) UploadCampaignList(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.BadRequest(w, "expected multipart form with a file part")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "file part is required")
		return
	}
	defer file.Close()

	listType := r.FormValue("listType")
	parsed, err := lists.ParseCSV(file)
	if err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid CSV", err.Error())
		return
	}

	c, err := h.campaigns.UploadList(r.Context(), requestActor(r),
		chi.URLParam(r, "campaignID"), listType, parsed.Preview, parsed.TotalRecords)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"campaign": c})
}

func (h *Handlers) UploadList(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.BadRequest(w, "expected multipart form with a file part")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "file part is required")
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	l, err := h.lists.Upload(r.Context(), requestActor(r), name, r.FormValue("listType"), file)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, httputil.Envelope{"list": l})
}

func (h *Handlers) ListLists(w http.ResponseWriter, r *http.Request) {
	out, err := h.lists.List(r.Context(), requestActor(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if out == nil {
		out = []domain.ListRecord{}
	}
	httputil.OK(w, httputil.Envelope{"lists": out, "count": len(out)})
}

func (h *Handlers) GetList(w http.ResponseWriter, r *http.Request) {
	l, err := h.lists.Get(r.Context(), requestActor(r), chi.URLParam(r, "listID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"list": l})
}

func (h *Handlers) ApproveStandaloneList(w http.ResponseWriter, r *http.Request) {
	l, err := h.lists.Approve(r.Context(), requestActor(r), chi.URLParam(r, "listID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"list": l})
}

func (h *Handlers) DeleteList(w http.ResponseWriter, r *http.Request) {
	if err := h.lists.Delete(r.Context(), requestActor(r), chi.URLParam(r, "listID")); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"deleted": true})
}
