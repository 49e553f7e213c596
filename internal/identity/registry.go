package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/agendly/clientlink/internal/store"
	"github.com/agendly/clientlink/pkg/models"
)

// Registry allocates and memoizes the stable code for each tenant owner.
// Codes are created lazily on first use and never regenerated: every
// outstanding client QR embeds the owner code, so a regenerated code would
// invalidate all of them.
type Registry struct {
	store store.Store
	locks *keyMutex
}

// NewRegistry creates an owner code registry backed by the given store.
func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s, locks: newKeyMutex()}
}

// GetOrCreate returns the owner's code, synthesizing and persisting one on
// first use. Idempotent under concurrent calls for the same owner: creation
// is serialized per key in-process, and the storage layer's insert-if-absent
// guarantees a single winner across processes. Both racers observe the same
// stored code.
func (r *Registry) GetOrCreate(ctx context.Context, ownerID int64) (*models.OwnerCode, error) {
	mu := r.locks.lock(ownerID)
	defer mu.Unlock()

	oc, err := r.store.GetOwnerCode(ctx, ownerID)
	if err == nil {
		return oc, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get owner code: %w", err)
	}

	candidate := &models.OwnerCode{
		OwnerID: ownerID,
		Code:    BuildOwnerCode(ownerID, NewTag(ownerID)),
	}
	oc, err = r.store.InsertOwnerCodeIfAbsent(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("insert owner code: %w", err)
	}
	return oc, nil
}
