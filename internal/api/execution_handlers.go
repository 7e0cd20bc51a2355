package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fractionalops/claire-backend/internal/pkg/httputil"
)

func (h *Handlers) GetExecution(w http.ResponseWriter, r *http.Request) {
	e, err := h.campaigns.GetExecution(r.Context(), requestActor(r), chi.URLParam(r, "executionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"execution": e})
}

func (h *Handlers) ApproveExecution(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EditedOutput string `json:"editedOutput"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	e, err := h.campaigns.ApproveExecution(r.Context(), requestActor(r),
		chi.URLParam(r, "executionID"), body.EditedOutput)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, httputil.Envelope{"execution": e})
}
