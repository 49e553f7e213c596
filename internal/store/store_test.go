package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/agendly/clientlink/internal/store"
	"github.com/agendly/clientlink/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool + cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("clientlink_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func insertOwner(t *testing.T, pool *pgxpool.Pool, name string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (name, email, user_type) VALUES ($1, $2, 'customer') RETURNING id`,
		name, name+"@example.com").Scan(&id)
	require.NoError(t, err)
	return id
}

func insertClient(t *testing.T, pool *pgxpool.Pool, clientID, ownerID int64) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO clients (id, owner_id, name, username) VALUES ($1, $2, 'Jane Doe', 'jane')`,
		clientID, ownerID)
	require.NoError(t, err)
}

// --- Owner codes ---

func TestOwnerCode_InsertIfAbsent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	ownerID := insertOwner(t, pool, "owner-a")

	_, err := s.GetOwnerCode(ctx, ownerID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	first, err := s.InsertOwnerCodeIfAbsent(ctx, &models.OwnerCode{OwnerID: ownerID, Code: "PROF_001_AAAA"})
	require.NoError(t, err)
	assert.Equal(t, "PROF_001_AAAA", first.Code)

	// A second insert with a different candidate loses to the existing row.
	second, err := s.InsertOwnerCodeIfAbsent(ctx, &models.OwnerCode{OwnerID: ownerID, Code: "PROF_001_BBBB"})
	require.NoError(t, err)
	assert.Equal(t, "PROF_001_AAAA", second.Code)

	got, err := s.GetOwnerCode(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "PROF_001_AAAA", got.Code)
}

func TestOwnerCode_ConcurrentInsert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	ownerID := insertOwner(t, pool, "owner-race")

	const workers = 10
	codes := make([]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			candidate := &models.OwnerCode{OwnerID: ownerID, Code: fmt.Sprintf("PROF_001_%04d", i)}
			oc, err := s.InsertOwnerCodeIfAbsent(ctx, candidate)
			if err == nil {
				codes[i] = oc.Code
			}
		}(i)
	}
	wg.Wait()

	// Every writer converged on the single winning row.
	require.NotEmpty(t, codes[0])
	for i := 1; i < workers; i++ {
		assert.Equal(t, codes[0], codes[i])
	}
}

// --- Clients ---

func TestClient_SetCodeIfAbsent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	ownerID := insertOwner(t, pool, "owner-b")
	insertClient(t, pool, 1001, ownerID)

	got, err := s.GetClient(ctx, 1001)
	require.NoError(t, err)
	assert.Nil(t, got.Code)

	stored, err := s.SetClientCodeIfAbsent(ctx, 1001, "PROF_001_AAAA_CLIENT_1001_BBBB")
	require.NoError(t, err)
	assert.Equal(t, "PROF_001_AAAA_CLIENT_1001_BBBB", stored)

	// Once set, the stored code wins over any later candidate.
	stored, err = s.SetClientCodeIfAbsent(ctx, 1001, "PROF_001_AAAA_CLIENT_1001_CCCC")
	require.NoError(t, err)
	assert.Equal(t, "PROF_001_AAAA_CLIENT_1001_BBBB", stored)

	got, err = s.GetClient(ctx, 1001)
	require.NoError(t, err)
	require.NotNil(t, got.Code)
	assert.Equal(t, "PROF_001_AAAA_CLIENT_1001_BBBB", *got.Code)
}

func TestClient_SetCodeIfAbsent_UnknownClient(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.SetClientCodeIfAbsent(context.Background(), 404, "PROF_001_AAAA_CLIENT_404_BBBB")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestClient_ListMissingCodes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	ownerID := insertOwner(t, pool, "owner-c")

	for i := int64(1); i <= 5; i++ {
		insertClient(t, pool, 2000+i, ownerID)
	}
	_, err := s.SetClientCodeIfAbsent(ctx, 2003, "PROF_001_AAAA_CLIENT_2003_BBBB")
	require.NoError(t, err)

	missing, err := s.ListClientsMissingCodes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 4)
	for _, c := range missing {
		assert.Nil(t, c.Code)
		assert.NotEqual(t, int64(2003), c.ID)
	}

	limited, err := s.ListClientsMissingCodes(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

// --- Users & API keys ---

func TestGetUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	// Migration seeds the system admin.
	admin, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeAdmin, admin.UserType)

	_, err = s.GetUser(ctx, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAPIKeys_PrefixLookupAndLastUsed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	ownerID := insertOwner(t, pool, "owner-d")

	keyID := uuid.New()
	_, err := pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix) VALUES ($1, $2, 'ci', 'hash', 'clk_abcd')`,
		keyID, ownerID)
	require.NoError(t, err)

	keys, err := s.GetAPIKeyByPrefix(ctx, "clk_abcd")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, keyID, keys[0].ID)
	assert.Nil(t, keys[0].LastUsedAt)

	require.NoError(t, s.UpdateAPIKeyLastUsed(ctx, keyID))

	keys, err = s.GetAPIKeyByPrefix(ctx, "clk_abcd")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt)

	// Soft-deleted keys disappear from prefix lookups.
	_, err = pool.Exec(ctx, `UPDATE api_keys SET deleted_at = NOW() WHERE id = $1`, keyID)
	require.NoError(t, err)
	keys, err = s.GetAPIKeyByPrefix(ctx, "clk_abcd")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

// --- Revocations ---

func TestRevocations_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	code := "PROF_001_AAAA_CLIENT_1001_BBBB"

	revoked, err := s.IsClientCodeRevoked(ctx, code)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.RevokeClientCode(ctx, code, "phone stolen"))
	revoked, err = s.IsClientCodeRevoked(ctx, code)
	require.NoError(t, err)
	assert.True(t, revoked)

	// Revoking twice is a no-op.
	assert.NoError(t, s.RevokeClientCode(ctx, code, "again"))

	require.NoError(t, s.ReinstateClientCode(ctx, code))
	revoked, err = s.IsClientCodeRevoked(ctx, code)
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.ErrorIs(t, s.ReinstateClientCode(ctx, code), store.ErrNotFound)
}
