// Package session issues and validates the client-area session tokens handed
// out after a successful activation-token verification.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSession = errors.New("invalid session token")

// Claims are the JWT claims for a client-area session. The subject is the
// client id; the scope is always the single client record.
type Claims struct {
	OwnerID    int64  `json:"owner_id"`
	ClientID   int64  `json:"client_id"`
	ClientCode string `json:"client_code"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and parses HS256 session tokens.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewManager creates a session manager. ttl bounds how long a scanned QR
// keeps a browser session alive before the client must rescan.
func NewManager(secret []byte, issuer string, ttl time.Duration) *Manager {
	return &Manager{secret: secret, issuer: issuer, ttl: ttl}
}

// Issue creates a session token for a resolved client.
func (m *Manager) Issue(ownerID, clientID int64, clientCode string) (string, error) {
	now := time.Now()
	claims := &Claims{
		OwnerID:    ownerID,
		ClientID:   clientID,
		ClientCode: clientCode,
		Role:       "client",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(clientID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse validates a session token and returns its claims.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
