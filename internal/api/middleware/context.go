package middleware

import (
	"context"
	"net/http"

	"github.com/agendly/clientlink/internal/tenant"
)

type contextKey string

const (
	tenantContextKey contextKey = "tenant_context"
	keyPrefixKey     contextKey = "key_prefix"
)

// SetTenantContext stores the resolved tenant context for downstream handlers.
func SetTenantContext(ctx context.Context, tc tenant.Context) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

// GetTenantContext retrieves the tenant context set by the auth middleware.
func GetTenantContext(r *http.Request) (tenant.Context, bool) {
	tc, ok := r.Context().Value(tenantContextKey).(tenant.Context)
	return tc, ok
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}
