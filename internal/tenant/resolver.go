package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agendly/clientlink/internal/cache"
	"github.com/agendly/clientlink/internal/identity"
	"github.com/agendly/clientlink/internal/store"
	"github.com/agendly/clientlink/pkg/models"
)

// Resolution failure sentinels. These are data-state facts (the token was
// structurally and cryptographically valid), so handlers may say "token no
// longer valid" without leaking anything.
var (
	ErrClientNotFound    = errors.New("client not found")
	ErrOwnershipMismatch = errors.New("client ownership mismatch")
	ErrCodeRevoked       = errors.New("client code revoked")
)

const revocationCacheTTL = time.Minute

// ClientSession is the tenant-scoped outcome of resolving a verified
// identity: the client record plus a client-role context that only ever sees
// this single record.
type ClientSession struct {
	Client  *models.Client
	Context Context
}

// Resolver turns a verified token identity into a client session. It is
// read-only and safe for concurrent use.
type Resolver struct {
	store store.Store
	cache cache.Cache
}

// NewResolver creates a client access resolver. cache may be nil; revocation
// checks then always hit the store.
func NewResolver(s store.Store, c cache.Cache) *Resolver {
	return &Resolver{store: s, cache: c}
}

// Resolve loads the client behind a verified identity and confirms that
// current data still matches the claim. The stored record's owner must equal
// the token-derived owner: ownership may have changed after the token was
// minted, or the id may have been reused for a deleted client, and either
// way the token is dead.
func (r *Resolver) Resolve(ctx context.Context, id identity.VerifiedIdentity) (*ClientSession, error) {
	client, err := r.store.GetClient(ctx, id.ClientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}

	if client.OwnerID != id.OwnerID {
		return nil, ErrOwnershipMismatch
	}

	revoked, err := r.isRevoked(ctx, id.ClientCode)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrCodeRevoked
	}

	return &ClientSession{
		Client:  client,
		Context: NewContext(client.ID, models.UserTypeClient),
	}, nil
}

// isRevoked consults the short-TTL cache first and falls through to the
// store on miss or cache failure.
func (r *Resolver) isRevoked(ctx context.Context, clientCode string) (bool, error) {
	key := cache.RevocationKey(clientCode)
	if r.cache != nil {
		if val, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			return string(val) == "1", nil
		}
	}

	revoked, err := r.store.IsClientCodeRevoked(ctx, clientCode)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}

	if r.cache != nil {
		val := []byte("0")
		if revoked {
			val = []byte("1")
		}
		// Best effort; a failed cache write just means the next check hits
		// the store again.
		_ = r.cache.Set(ctx, key, val, revocationCacheTTL)
	}
	return revoked, nil
}
