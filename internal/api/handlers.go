// Package api exposes the campaign lifecycle over HTTP. Handlers decode
// the request, resolve the acting principal, call the service layer, and
// translate sentinel errors onto statuses. No business rules live here.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fractionalops/claire-backend/internal/actor"
	"github.com/fractionalops/claire-backend/internal/domain"
	"github.com/fractionalops/claire-backend/internal/pkg/httputil"
	"github.com/fractionalops/claire-backend/internal/service/lifecycle"
	"github.com/fractionalops/claire-backend/internal/service/lists"
)

// Handlers holds all HTTP handlers and their service dependencies.
type Handlers struct {
	campaigns *lifecycle.Service
	lists     *lists.Service
	resolver  *actor.Resolver
}

// NewHandlers creates the handler set.
func NewHandlers(campaigns *lifecycle.Service, listSvc *lists.Service, resolver *actor.Resolver) *Handlers {
	return &Handlers{campaigns: campaigns, lists: listSvc, resolver: resolver}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	httputil.OK(w, httputil.Envelope{"status": "ok"})
}

type actorKey struct{}

// withActor resolves the bearer credential and optional ?impersonate
// override, then stashes the actor in the request context. Every /api
// route runs behind this.
func (h *Handlers) withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := bearerToken(r)
		impersonate := r.URL.Query().Get("impersonate")

		a, err := h.resolver.Resolve(r.Context(), credential, impersonate)
		if err != nil {
			switch {
			case errors.Is(err, actor.ErrForbidden):
				httputil.Fail(w, http.StatusForbidden, "forbidden", "admin access required for impersonation")
			default:
				httputil.Fail(w, http.StatusUnauthorized, "unauthorized", "")
			}
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, a)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// requestActor returns the actor resolved by withActor. Panics if the
// middleware did not run; routes are always registered behind it.
func requestActor(r *http.Request) domain.Actor {
	return r.Context().Value(actorKey{}).(domain.Actor)
}

// writeServiceError maps service sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound) || errors.Is(err, lists.ErrNotFound):
		httputil.Fail(w, http.StatusNotFound, "not found", "")
	case errors.Is(err, lifecycle.ErrForbidden) || errors.Is(err, lists.ErrForbidden):
		httputil.Fail(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, lifecycle.ErrPreconditionFailed) || errors.Is(err, lists.ErrPreconditionFailed):
		httputil.Fail(w, http.StatusBadRequest, "precondition failed", err.Error())
	case errors.Is(err, lifecycle.ErrGenerationInProgress):
		httputil.Fail(w, http.StatusConflict, "generation in progress", "")
	case errors.Is(err, lifecycle.ErrUpstreamUnavailable):
		httputil.Fail(w, http.StatusBadGateway, "content gateway unavailable", "")
	default:
		httputil.InternalError(w, err)
	}
}
