// Package activation orchestrates the QR activation flows: issuing tokens
// for staff, verifying scanned tokens, and managing the revocation list.
package activation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agendly/clientlink/internal/cache"
	"github.com/agendly/clientlink/internal/identity"
	"github.com/agendly/clientlink/internal/session"
	"github.com/agendly/clientlink/internal/store"
	"github.com/agendly/clientlink/internal/tenant"
	"github.com/agendly/clientlink/pkg/models"
)

var (
	// ErrForbidden means the acting principal may not touch this client.
	ErrForbidden = errors.New("client belongs to another tenant")
	// ErrClientMismatch means a caller-supplied client id disagrees with the
	// token-derived one. The token is authoritative; a discrepancy is a hard
	// failure, never a silent preference for one source.
	ErrClientMismatch = errors.New("client id does not match token")
)

// Service wires the code registry, generator, codec, resolver, and session
// manager into the operations the HTTP handlers expose.
type Service struct {
	store     store.Store
	cache     cache.Cache
	registry  *identity.Registry
	generator *identity.Generator
	codec     *identity.Codec
	resolver  *tenant.Resolver
	sessions  *session.Manager
}

// NewService creates the activation service.
func NewService(
	s store.Store,
	c cache.Cache,
	registry *identity.Registry,
	generator *identity.Generator,
	codec *identity.Codec,
	resolver *tenant.Resolver,
	sessions *session.Manager,
) *Service {
	return &Service{
		store:     s,
		cache:     c,
		registry:  registry,
		generator: generator,
		codec:     codec,
		resolver:  resolver,
		sessions:  sessions,
	}
}

// Issued is the result of minting an activation token for a client.
type Issued struct {
	Token  string
	Client *models.Client
}

// IssueToken mints (or re-mints, identically) the activation token for a
// client. The actor must own the client or hold global access; the check
// goes through the tenant predicate, not an ad hoc comparison.
func (s *Service) IssueToken(ctx context.Context, actor tenant.Context, clientID int64) (*Issued, error) {
	client, err := s.store.GetClient(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, tenant.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}

	if !actor.CanAccessOwner(client.OwnerID) {
		return nil, ErrForbidden
	}

	code, err := s.generator.Generate(ctx, client.OwnerID, clientID)
	if err != nil {
		return nil, err
	}

	token, err := s.codec.Mint(client.OwnerID, code)
	if err != nil {
		return nil, err
	}
	return &Issued{Token: token, Client: client}, nil
}

// Login is the result of a successful token verification: the client record,
// its tenant context, and a session token for the client area.
type Login struct {
	Client       *models.Client
	Context      tenant.Context
	SessionToken string
}

// VerifyToken verifies a scanned token end to end: codec check, redundant
// client-id cross-check, then resolution against current data. claimedClientID
// of zero means the caller supplied none.
func (s *Service) VerifyToken(ctx context.Context, token string, claimedClientID int64) (*Login, error) {
	id, err := s.codec.Verify(token)
	if err != nil {
		return nil, err
	}

	if claimedClientID != 0 && claimedClientID != id.ClientID {
		return nil, ErrClientMismatch
	}

	sess, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	sessionToken, err := s.sessions.Issue(id.OwnerID, id.ClientID, id.ClientCode)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	return &Login{
		Client:       sess.Client,
		Context:      sess.Context,
		SessionToken: sessionToken,
	}, nil
}

// SimpleLogin is the GET-based login variant for PWA/webview contexts. The
// username, when supplied, must match the resolved record.
func (s *Service) SimpleLogin(ctx context.Context, username string, clientID int64, token string) (*Login, error) {
	login, err := s.VerifyToken(ctx, token, clientID)
	if err != nil {
		return nil, err
	}
	if username != "" && !strings.EqualFold(username, login.Client.Username) {
		return nil, ErrClientMismatch
	}
	return login, nil
}

// ResolveActivation extracts the client id from a token for the /activate
// redirect. Pure codec work, no I/O: the browser is sent on to the
// auto-login URL, where full resolution happens.
func (s *Service) ResolveActivation(token string) (int64, error) {
	id, err := s.codec.Verify(token)
	if err != nil {
		return 0, err
	}
	return id.ClientID, nil
}

// Revoke adds a client code to the revocation list. The codec stays
// stateless; revocation is separate state the resolver consults.
func (s *Service) Revoke(ctx context.Context, clientCode, reason string) error {
	if _, err := identity.ParseClientCode(clientCode); err != nil {
		return err
	}
	if err := s.store.RevokeClientCode(ctx, clientCode, reason); err != nil && !errors.Is(err, store.ErrDuplicateKey) {
		return fmt.Errorf("revoke code: %w", err)
	}
	s.dropRevocationCache(ctx, clientCode)
	return nil
}

// Reinstate removes a client code from the revocation list.
func (s *Service) Reinstate(ctx context.Context, clientCode string) error {
	if err := s.store.ReinstateClientCode(ctx, clientCode); err != nil {
		return err
	}
	s.dropRevocationCache(ctx, clientCode)
	return nil
}

func (s *Service) dropRevocationCache(ctx context.Context, clientCode string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cache.RevocationKey(clientCode))
	}
}
