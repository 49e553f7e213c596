package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/agendly/clientlink/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Owner codes ---

func (s *PostgresStore) GetOwnerCode(ctx context.Context, ownerID int64) (*models.OwnerCode, error) {
	var oc models.OwnerCode
	err := s.pool.QueryRow(ctx,
		`SELECT owner_id, code, created_at FROM owner_codes WHERE owner_id = $1`, ownerID,
	).Scan(&oc.OwnerID, &oc.Code, &oc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get owner code: %w", err)
	}
	return &oc, nil
}

func (s *PostgresStore) InsertOwnerCodeIfAbsent(ctx context.Context, code *models.OwnerCode) (*models.OwnerCode, error) {
	var oc models.OwnerCode
	err := s.pool.QueryRow(ctx,
		`INSERT INTO owner_codes (owner_id, code, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (owner_id) DO NOTHING
		 RETURNING owner_id, code, created_at`,
		code.OwnerID, code.Code,
	).Scan(&oc.OwnerID, &oc.Code, &oc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race; the winning row is the code of record.
		return s.GetOwnerCode(ctx, code.OwnerID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert owner code: %w", err)
	}
	return &oc, nil
}

// --- Clients ---

func (s *PostgresStore) GetClient(ctx context.Context, clientID int64) (*models.Client, error) {
	var c models.Client
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, username, email, code, created_at, updated_at
		 FROM clients WHERE id = $1`, clientID,
	).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Username, &c.Email, &c.Code, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) SetClientCodeIfAbsent(ctx context.Context, clientID int64, code string) (string, error) {
	var stored string
	err := s.pool.QueryRow(ctx,
		`UPDATE clients SET code = $2, updated_at = NOW()
		 WHERE id = $1 AND code IS NULL
		 RETURNING code`, clientID, code,
	).Scan(&stored)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("set client code: %w", err)
	}

	// Either the client already has a code or the id does not exist.
	var existing *string
	err = s.pool.QueryRow(ctx, `SELECT code FROM clients WHERE id = $1`, clientID).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get client code: %w", err)
	}
	if existing == nil {
		return "", fmt.Errorf("client %d code unset after conditional update", clientID)
	}
	return *existing, nil
}

func (s *PostgresStore) ListClientsMissingCodes(ctx context.Context, limit int) ([]*models.Client, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, name, username, email, code, created_at, updated_at
		 FROM clients WHERE code IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list clients missing codes: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Username, &c.Email, &c.Code,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

// --- Users & API keys ---

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, user_type, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.UserType, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

// --- Revocations ---

func (s *PostgresStore) RevokeClientCode(ctx context.Context, clientCode, reason string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO revoked_codes (client_code, reason, revoked_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (client_code) DO NOTHING`, clientCode, reason)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("revoke client code: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReinstateClientCode(ctx context.Context, clientCode string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM revoked_codes WHERE client_code = $1`, clientCode)
	if err != nil {
		return fmt.Errorf("reinstate client code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IsClientCodeRevoked(ctx context.Context, clientCode string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_codes WHERE client_code = $1)`, clientCode,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check revoked code: %w", err)
	}
	return exists, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
