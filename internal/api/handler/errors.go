package handler

import (
	"errors"
	"net/http"

	"github.com/agendly/clientlink/internal/activation"
	"github.com/agendly/clientlink/internal/api/response"
	"github.com/agendly/clientlink/internal/identity"
	"github.com/agendly/clientlink/internal/tenant"
)

// writeVerifyError maps verification failures to HTTP responses. Structural,
// grammar, and cryptographic failures all collapse into one generic message
// so responses never reveal which check failed. Stale-data rejections are
// safe to name: "no longer valid" is a data-state fact, not a secret.
func writeVerifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrMalformedToken),
		errors.Is(err, identity.ErrInvalidCodeFormat),
		errors.Is(err, identity.ErrTagMismatch),
		errors.Is(err, activation.ErrClientMismatch):
		response.Error(w, http.StatusUnauthorized,
			"INVALID_TOKEN", "Invalid token", nil)
	case errors.Is(err, tenant.ErrClientNotFound),
		errors.Is(err, tenant.ErrOwnershipMismatch),
		errors.Is(err, tenant.ErrCodeRevoked):
		response.Error(w, http.StatusUnauthorized,
			"TOKEN_NO_LONGER_VALID", "Token no longer valid", nil)
	default:
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
