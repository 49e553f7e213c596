package handler

import "net/http"

// ActivationResolver defines the interface the redirect handler depends on.
type ActivationResolver interface {
	ResolveActivation(token string) (int64, error)
}

// NewActivateHandler returns the handler for GET /activate?token=...: it
// resolves the token's embedded client id and 302-redirects to the
// auto-login URL. Invalid links land on the manual login page with a generic
// reason; no verification detail reaches the browser.
func NewActivateHandler(svc ActivationResolver, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Redirect(w, r, baseURL+"/login?reason=invalid_link", http.StatusFound)
			return
		}

		clientID, err := svc.ResolveActivation(token)
		if err != nil {
			http.Redirect(w, r, baseURL+"/login?reason=invalid_link", http.StatusFound)
			return
		}

		http.Redirect(w, r, DirectLoginURL(baseURL, token, clientID), http.StatusFound)
	}
}
