package store

import (
	"context"
	"errors"

	"github.com/agendly/clientlink/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// Owner codes. InsertOwnerCodeIfAbsent is the single-writer slot for
	// lazy creation: exactly one row can ever win for an owner id, and the
	// winning row is returned regardless of which caller inserted it.
	GetOwnerCode(ctx context.Context, ownerID int64) (*models.OwnerCode, error)
	InsertOwnerCodeIfAbsent(ctx context.Context, code *models.OwnerCode) (*models.OwnerCode, error)

	// Clients. SetClientCodeIfAbsent writes the code only when the column is
	// still NULL and returns the stored code either way; an issued code is
	// never overwritten.
	GetClient(ctx context.Context, clientID int64) (*models.Client, error)
	SetClientCodeIfAbsent(ctx context.Context, clientID int64, code string) (string, error)
	ListClientsMissingCodes(ctx context.Context, limit int) ([]*models.Client, error)

	// Staff authentication.
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error

	// Revocation list, keyed by client code. Consulted by the access
	// resolver after cryptographic verification.
	RevokeClientCode(ctx context.Context, clientCode, reason string) error
	ReinstateClientCode(ctx context.Context, clientCode string) error
	IsClientCodeRevoked(ctx context.Context, clientCode string) (bool, error)
}
