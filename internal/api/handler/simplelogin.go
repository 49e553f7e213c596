package handler

import (
	"net/http"
	"strconv"

	"github.com/agendly/clientlink/internal/api/response"
)

// NewSimpleLoginHandler returns the handler for
// GET /api/client/simple-login?username&clientId&token, the login variant
// for PWA and mobile webviews where POST bodies and cookies are unreliable.
// Same verification contract as verify-token.
func NewSimpleLoginHandler(svc TokenVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		token := q.Get("token")
		if token == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "token is required", nil)
			return
		}

		clientID, err := strconv.ParseInt(q.Get("clientId"), 10, 64)
		if err != nil || clientID <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "clientId is required", nil)
			return
		}

		login, err := svc.SimpleLogin(r.Context(), q.Get("username"), clientID, token)
		if err != nil {
			writeVerifyError(w, err)
			return
		}

		response.JSON(w, loginResponse(login))
	}
}
