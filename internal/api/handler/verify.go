package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/agendly/clientlink/internal/activation"
	"github.com/agendly/clientlink/internal/api/response"
	"github.com/agendly/clientlink/internal/tenant"
	"github.com/agendly/clientlink/pkg/models"
)

// TokenVerifier defines the interface the verification handlers depend on.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string, claimedClientID int64) (*activation.Login, error)
	SimpleLogin(ctx context.Context, username string, clientID int64, token string) (*activation.Login, error)
}

// NewVerifyTokenHandler returns the handler for
// POST /api/client-access/verify-token. The caller supplies clientId
// redundantly; it is cross-checked against the token-derived id, never
// trusted on its own.
func NewVerifyTokenHandler(svc TokenVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token    string `json:"token"`
			ClientID int64  `json:"clientId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.Token == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "token is required", nil)
			return
		}
		if req.ClientID <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "clientId is required", nil)
			return
		}

		login, err := svc.VerifyToken(r.Context(), req.Token, req.ClientID)
		if err != nil {
			writeVerifyError(w, err)
			return
		}

		response.JSON(w, loginResponse(login))
	}
}

type verifiedLoginResponse struct {
	Client       *models.Client `json:"client"`
	Context      tenant.Context `json:"context"`
	SessionToken string         `json:"session_token"`
}

func loginResponse(login *activation.Login) verifiedLoginResponse {
	return verifiedLoginResponse{
		Client:       login.Client,
		Context:      login.Context,
		SessionToken: login.SessionToken,
	}
}
