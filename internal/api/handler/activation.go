// Package handler contains the HTTP handlers for the activation API.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agendly/clientlink/internal/activation"
	mw "github.com/agendly/clientlink/internal/api/middleware"
	"github.com/agendly/clientlink/internal/api/response"
	"github.com/agendly/clientlink/internal/tenant"
	"github.com/go-chi/chi/v5"
)

// TokenIssuer defines the interface the activation handlers depend on.
type TokenIssuer interface {
	IssueToken(ctx context.Context, actor tenant.Context, clientID int64) (*activation.Issued, error)
}

// ActivationURL builds the QR-encoded URL: an indirection through /activate
// so what the QR encodes is decoupled from what the browser ultimately loads.
func ActivationURL(baseURL, token string) string {
	return baseURL + "/activate?token=" + url.QueryEscape(token)
}

// DirectLoginURL builds the auto-login URL the activation redirect targets.
func DirectLoginURL(baseURL, token string, clientID int64) string {
	return fmt.Sprintf("%s/client-area?token=%s&clientId=%d&autoLogin=true",
		baseURL, url.QueryEscape(token), clientID)
}

// NewActivationTokenHandler returns the handler for
// GET /api/clients/{clientID}/activation-token.
func NewActivationTokenHandler(svc TokenIssuer, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := mw.GetTenantContext(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_API_KEY", "Missing authentication", nil)
			return
		}

		clientID, err := strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
		if err != nil || clientID <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "clientID must be a positive integer", nil)
			return
		}

		issued, err := svc.IssueToken(r.Context(), actor, clientID)
		if err != nil {
			switch {
			case errors.Is(err, tenant.ErrClientNotFound):
				response.Error(w, http.StatusNotFound, "CLIENT_NOT_FOUND", "Client not found", nil)
			case errors.Is(err, activation.ErrForbidden):
				response.Error(w, http.StatusForbidden, "FORBIDDEN", "Client belongs to another account", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
			return
		}

		response.JSON(w, activationTokenResponse{
			Token:         issued.Token,
			ActivationURL: ActivationURL(baseURL, issued.Token),
			DirectURL:     DirectLoginURL(baseURL, issued.Token, clientID),
			ClientName:    issued.Client.Name,
		})
	}
}

type activationTokenResponse struct {
	Token         string `json:"token"`
	ActivationURL string `json:"activation_url"`
	DirectURL     string `json:"direct_url"`
	ClientName    string `json:"client_name"`
}
