package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/agendly/clientlink/internal/activation"
	mw "github.com/agendly/clientlink/internal/api/middleware"
	"github.com/agendly/clientlink/internal/api/response"
	"github.com/agendly/clientlink/internal/tenant"
	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSizePixels = 256

// NewQRHandler returns the handler for GET /api/clients/{clientID}/qr,
// rendering the client's activation URL as a PNG for printing.
func NewQRHandler(svc TokenIssuer, baseURL string) http.HandlerFunc {
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

		png, err := qrcode.Encode(ActivationURL(baseURL, issued.Token), qrcode.Medium, qrSizePixels)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render QR code", nil)
			return
		}

		response.PNG(w, png)
	}
}
