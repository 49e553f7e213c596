package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/agendly/clientlink/internal/store"
)

// ErrClientMissing is returned when a code is requested for a client id with
// no record. Global uniqueness of client ids is the client store's concern,
// not the generator's.
var ErrClientMissing = errors.New("client record not found")

// Generator derives the hierarchical code for a client, bound to its owner's
// code. Re-issuing is a read: a client that already has a stored code gets
// the identical code back, never a fresh one, so printed and cached QR codes
// stay valid.
type Generator struct {
	store    store.Store
	registry *Registry
	locks    *keyMutex
}

// NewGenerator creates a client code generator.
func NewGenerator(s store.Store, registry *Registry) *Generator {
	return &Generator{store: s, registry: registry, locks: newKeyMutex()}
}

// Generate returns the client's code, minting and persisting one on first
// use. The owner segment comes from the registry, so the owner is always
// recoverable from the client code alone.
func (g *Generator) Generate(ctx context.Context, ownerID, clientID int64) (string, error) {
	mu := g.locks.lock(clientID)
	defer mu.Unlock()

	client, err := g.store.GetClient(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrClientMissing
	}
	if err != nil {
		return "", fmt.Errorf("get client: %w", err)
	}
	if client.Code != nil {
		return *client.Code, nil
	}
	if client.OwnerID != ownerID {
		return "", fmt.Errorf("client %d belongs to owner %d, not %d",
			clientID, client.OwnerID, ownerID)
	}

	oc, err := g.registry.GetOrCreate(ctx, ownerID)
	if err != nil {
		return "", err
	}

	candidate := BuildClientCode(oc.Code, clientID, NewTag(clientID))
	code, err := g.store.SetClientCodeIfAbsent(ctx, clientID, candidate)
	if err != nil {
		return "", fmt.Errorf("set client code: %w", err)
	}
	return code, nil
}
