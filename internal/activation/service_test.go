package activation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agendly/clientlink/internal/activation"
	"github.com/agendly/clientlink/internal/cache"
	"github.com/agendly/clientlink/internal/identity"
	"github.com/agendly/clientlink/internal/session"
	"github.com/agendly/clientlink/internal/store"
	"github.com/agendly/clientlink/internal/tenant"
	"github.com/agendly/clientlink/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu         sync.Mutex
	ownerCodes map[int64]*models.OwnerCode
	clients    map[int64]*models.Client
	revoked    map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ownerCodes: make(map[int64]*models.OwnerCode),
		clients:    make(map[int64]*models.Client),
		revoked:    make(map[string]bool),
	}
}

func (f *fakeStore) Ping(_ context.Context) error { return nil }

func (f *fakeStore) GetOwnerCode(_ context.Context, ownerID int64) (*models.OwnerCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if oc, ok := f.ownerCodes[ownerID]; ok {
		return oc, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) InsertOwnerCodeIfAbsent(_ context.Context, code *models.OwnerCode) (*models.OwnerCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.ownerCodes[code.OwnerID]; ok {
		return existing, nil
	}
	f.ownerCodes[code.OwnerID] = code
	return code, nil
}

func (f *fakeStore) GetClient(_ context.Context, clientID int64) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[clientID]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) SetClientCodeIfAbsent(_ context.Context, clientID int64, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[clientID]
	if !ok {
		return "", store.ErrNotFound
	}
	if c.Code != nil {
		return *c.Code, nil
	}
	c.Code = &code
	return code, nil
}

func (f *fakeStore) ListClientsMissingCodes(_ context.Context, _ int) ([]*models.Client, error) {
	return nil, nil
}

func (f *fakeStore) GetUser(_ context.Context, _ int64) (*models.User, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) {
	return nil, nil
}

func (f *fakeStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }

func (f *fakeStore) RevokeClientCode(_ context.Context, code, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revoked[code] {
		return store.ErrDuplicateKey
	}
	f.revoked[code] = true
	return nil
}

func (f *fakeStore) ReinstateClientCode(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.revoked[code] {
		return store.ErrNotFound
	}
	delete(f.revoked, code)
	return nil
}

func (f *fakeStore) IsClientCodeRevoked(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[code], nil
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Ping(_ context.Context) error { return nil }

func (c *fakeCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

func newTestService(fs *fakeStore, fc *fakeCache) *activation.Service {
	registry := identity.NewRegistry(fs)
	generator := identity.NewGenerator(fs, registry)
	codec := identity.NewCodec(nil, true)
	resolver := tenant.NewResolver(fs, fc)
	sessions := session.NewManager([]byte("test-secret"), "clientlink", time.Hour)
	return activation.NewService(fs, fc, registry, generator, codec, resolver, sessions)
}

func seedClient(fs *fakeStore, clientID, ownerID int64, username string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.clients[clientID] = &models.Client{ID: clientID, OwnerID: ownerID, Name: "Jane Doe", Username: username}
}

func TestIssueToken_OwnerIssuesForOwnClient(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, newFakeCache())
	seedClient(fs, 1001, 14, "jane")

	actor := tenant.NewContext(14, models.UserTypeCustomer)
	issued, err := svc.IssueToken(context.Background(), actor, 1001)
	require.NoError(t, err)

	assert.Equal(t, int64(1001), issued.Client.ID)
	id, err := identity.NewCodec(nil, true).Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(14), id.OwnerID)
	assert.Equal(t, int64(1001), id.ClientID)
}

func TestIssueToken_Stable(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, newFakeCache())
	seedClient(fs, 1001, 14, "jane")

	actor := tenant.NewContext(14, models.UserTypeCustomer)
	first, err := svc.IssueToken(context.Background(), actor, 1001)
	require.NoError(t, err)
	second, err := svc.IssueToken(context.Background(), actor, 1001)
	require.NoError(t, err)

	assert.Equal(t, first.Token, second.Token)
}

func TestIssueToken_ForeignTenantRejected(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, newFakeCache())
	seedClient(fs, 1001, 14, "jane")

	actor := tenant.NewContext(15, models.UserTypeCustomer)
	_, err := svc.IssueToken(context.Background(), actor, 1001)
	assert.ErrorIs(t, err, activation.ErrForbidden)
}

func TestIssueToken_AdminCrossesTenants(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, newFakeCache())
	seedClient(fs, 1001, 14, "jane")

	actor := tenant.NewContext(1, models.UserTypeAdmin)
	_, err := svc.IssueToken(context.Background(), actor, 1001)
	assert.NoError(t, err)
}

func TestIssueToken_UnknownClient(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeCache())

	actor := tenant.NewContext(14, models.UserTypeCustomer)
	_, err := svc.IssueToken(context.Background(), actor, 404)
	assert.ErrorIs(t, err, tenant.ErrClientNotFound)
}

func TestVerifyToken_FullFlow(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, newFakeCache())
	seedClient(fs, 1001, 14, "jane")

	actor := tenant.NewContext(14, models.UserTypeCustomer)
	issued, err := svc.IssueToken(context.Background(), actor, 1001)
	require.NoError(t, err)

	login, err := svc.VerifyToken(context.Background(), issued.Token, 1001)
	require.NoError(t, err)

	assert.Equal(t, int64(1001), login.Client.ID)
	assert.Equal(t, models.UserTypeClient, login.Context.UserType)
	assert.NotEmpty(t, login.SessionToken)

	claims, err := session.NewManager([]byte("test-secret"), "clientlink", time.Hour).Parse(login.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), claims.ClientID)
	assert.Equal(t, int64(14), claims.OwnerID)
}

func TestVerifyToken_ClaimedIDOptional(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, newFakeCache())
	seedClient(fs, 1001, 14, "jane")

	issued, err := svc.IssueToken(context.Background(), tenant.NewContext(14, models.UserTypeCustomer), 1001)
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), issued.Token, 0)
	assert.NoError(t, err)
}

func TestVerifyToken_ClaimedIDMismatch(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, newFakeCache())
	seedClient(fs, 1001, 14, "jane")

	issued, err := svc.IssueToken(context.Background(), tenant.NewContext(14, models.UserTypeCustomer), 1001)
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), issued.Token, 2002)
	assert.ErrorIs(t, err, activation.ErrClientMismatch)
}

func TestVerifyToken_RevokedThenReinstated(t *testing.T) {
	fs := newFakeStore()
	fc := newFakeCache()
	svc := newTestService(fs, fc)
	seedClient(fs, 1001, 14, "jane")

	issued, err := svc.IssueToken(context.Background(), tenant.NewContext(14, models.UserTypeCustomer), 1001)
	require.NoError(t, err)
	code := *fs.clients[1001].Code

	// Warm the revocation cache with a negative verdict, then revoke. The
	// cache entry must be dropped so the revocation takes effect immediately.
	_, err = svc.VerifyToken(context.Background(), issued.Token, 1001)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), code, "phone stolen"))
	_, err = svc.VerifyToken(context.Background(), issued.Token, 1001)
	assert.ErrorIs(t, err, tenant.ErrCodeRevoked)

	require.NoError(t, svc.Reinstate(context.Background(), code))
	_, err = svc.VerifyToken(context.Background(), issued.Token, 1001)
	assert.NoError(t, err)
}

func TestRevoke_BadGrammar(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeCache())

	err := svc.Revoke(context.Background(), "not-a-code", "whatever")
	assert.ErrorIs(t, err, identity.ErrInvalidCodeFormat)
}

func TestRevoke_Idempotent(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeCache())
	code := "PROF_014_D84F_CLIENT_1001_7BCE"

	require.NoError(t, svc.Revoke(context.Background(), code, "first"))
	assert.NoError(t, svc.Revoke(context.Background(), code, "second"))
}

func TestReinstate_NotRevoked(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeCache())

	err := svc.Reinstate(context.Background(), "PROF_014_D84F_CLIENT_1001_7BCE")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSimpleLogin_UsernameMatch(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, newFakeCache())
	seedClient(fs, 1001, 14, "jane")

	issued, err := svc.IssueToken(context.Background(), tenant.NewContext(14, models.UserTypeCustomer), 1001)
	require.NoError(t, err)

	// Case-insensitive match.
	login, err := svc.SimpleLogin(context.Background(), "JANE", 1001, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), login.Client.ID)

	// No username is fine; the token alone decides.
	_, err = svc.SimpleLogin(context.Background(), "", 1001, issued.Token)
	assert.NoError(t, err)

	_, err = svc.SimpleLogin(context.Background(), "mallory", 1001, issued.Token)
	assert.ErrorIs(t, err, activation.ErrClientMismatch)
}

func TestResolveActivation(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, newFakeCache())
	seedClient(fs, 1001, 14, "jane")

	issued, err := svc.IssueToken(context.Background(), tenant.NewContext(14, models.UserTypeCustomer), 1001)
	require.NoError(t, err)

	clientID, err := svc.ResolveActivation(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), clientID)

	_, err = svc.ResolveActivation("garbage")
	assert.Error(t, err)
}

var _ cache.Cache = (*fakeCache)(nil)
var _ store.Store = (*fakeStore)(nil)
