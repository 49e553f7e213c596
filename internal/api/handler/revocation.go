package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agendly/clientlink/internal/api/response"
	"github.com/agendly/clientlink/internal/identity"
	"github.com/agendly/clientlink/internal/store"
	"github.com/go-chi/chi/v5"
)

// Revoker defines the interface the admin revocation handlers depend on.
type Revoker interface {
	Revoke(ctx context.Context, clientCode, reason string) error
	Reinstate(ctx context.Context, clientCode string) error
}

// NewRevokeHandler returns the handler for POST /api/v1/admin/revocations.
// Revoking is idempotent: revoking an already-revoked code succeeds.
func NewRevokeHandler(svc Revoker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ClientCode string `json:"client_code"`
			Reason     string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.ClientCode == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "client_code is required", nil)
			return
		}

		if err := svc.Revoke(r.Context(), req.ClientCode, req.Reason); err != nil {
			if errors.Is(err, identity.ErrInvalidCodeFormat) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "client_code does not match the code grammar", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		response.Created(w, map[string]string{"client_code": req.ClientCode, "status": "revoked"})
	}
}

// NewReinstateHandler returns the handler for
// DELETE /api/v1/admin/revocations/{code}.
func NewReinstateHandler(svc Revoker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		if err := svc.Reinstate(r.Context(), code); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Code is not revoked", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		response.NoContent(w)
	}
}
