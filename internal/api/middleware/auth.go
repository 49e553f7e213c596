package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/agendly/clientlink/internal/api/response"
	"github.com/agendly/clientlink/internal/store"
	"github.com/agendly/clientlink/internal/tenant"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefixLen = 8

// Auth authenticates staff/admin API keys and attaches the resulting tenant
// context to the request.
type Auth struct {
	store store.Store
}

// NewAuth creates a new Auth middleware.
func NewAuth(s store.Store) *Auth {
	return &Auth{store: s}
}

// Authenticate validates the Bearer API key, loads the owning user, and sets
// a fresh tenant context in the request context. The context is rebuilt per
// request from (userID, userType); nothing about it is persisted.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := extractBearerToken(r)
		if rawKey == "" || len(rawKey) < keyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_API_KEY", "Missing or invalid Authorization header", nil)
			return
		}

		prefix := rawKey[:keyPrefixLen]

		keys, err := a.store.GetAPIKeyByPrefix(r.Context(), prefix)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate API key", nil)
			return
		}

		for _, key := range keys {
			if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(rawKey)) != nil {
				continue
			}

			user, err := a.store.GetUser(r.Context(), key.UserID)
			if err != nil {
				response.Error(w, http.StatusUnauthorized,
					"INVALID_API_KEY", "Invalid API key", nil)
				return
			}

			ctx := SetTenantContext(r.Context(), tenant.NewContext(user.ID, user.UserType))
			ctx = setKeyPrefix(ctx, prefix)

			// Update last_used_at async
			go a.store.UpdateAPIKeyLastUsed(context.Background(), key.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		response.Error(w, http.StatusUnauthorized,
			"INVALID_API_KEY", "Invalid API key", nil)
	})
}

// RequireAdmin gates routes on global (non-isolated) access.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := GetTenantContext(r)
		if !ok || !tc.Permissions.CanAccessGlobalData {
			response.Error(w, http.StatusForbidden,
				"FORBIDDEN", "Insufficient permissions", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
