package identity

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Verification failure sentinels. All are client-input errors; handlers
// collapse them into a single generic rejection so responses never reveal
// which check failed.
var (
	ErrMalformedToken    = errors.New("malformed token")
	ErrInvalidCodeFormat = errors.New("invalid code format")
	ErrTagMismatch       = errors.New("token tag mismatch")
)

// v2Prefix marks tokens whose tag is a keyed MAC rather than the legacy
// unkeyed digest. Legacy and keyed tokens coexist during the reissuance
// window.
const v2Prefix = "V2_"

const tagHexLen = 8

// VerifiedIdentity is the outcome of a successful token verification: a
// cryptographically checked but not yet authorized identity claim. Ownership
// against current data is confirmed separately by the access resolver.
type VerifiedIdentity struct {
	OwnerID    int64
	ClientID   int64
	ClientCode string
}

// Codec mints and verifies activation tokens. It is a pure codec: tokens are
// a deterministic function of (clientCode, ownerID) plus the optional secret,
// no issued-token state is kept anywhere, and Verify needs no I/O.
type Codec struct {
	secret      []byte
	allowLegacy bool
}

// NewCodec builds a Codec. With a non-empty secret, new tokens carry a keyed
// HMAC-SHA256 tag behind the V2_ prefix; with allowLegacy, tokens minted by
// the original unkeyed derivation still verify.
func NewCodec(secret []byte, allowLegacy bool) *Codec {
	return &Codec{secret: secret, allowLegacy: allowLegacy}
}

// Mint derives the activation token for a client code. Deterministic: minting
// twice for the same client yields the identical token, so QR codes can be
// regenerated and reprinted freely.
func (c *Codec) Mint(ownerID int64, clientCode string) (string, error) {
	parsed, err := ParseClientCode(clientCode)
	if err != nil {
		return "", err
	}
	if parsed.OwnerID != ownerID {
		return "", fmt.Errorf("client code belongs to owner %d, not %d: %w",
			parsed.OwnerID, ownerID, ErrInvalidCodeFormat)
	}

	if len(c.secret) > 0 {
		return v2Prefix + clientCode + "_" + c.keyedTag(clientCode, ownerID), nil
	}
	return clientCode + "_" + legacyTag(clientCode, ownerID), nil
}

// Verify checks a token and extracts the identity it encodes. Checks run in
// order: structure, grammar, owner extraction, constant-time tag comparison,
// client-id extraction. Only the tag comparison proves the token was minted
// here; everything before it is parsing.
func (c *Codec) Verify(token string) (VerifiedIdentity, error) {
	keyed := strings.HasPrefix(token, v2Prefix)
	body := strings.TrimPrefix(token, v2Prefix)

	idx := strings.LastIndex(body, "_")
	if idx <= 0 || idx == len(body)-1 {
		return VerifiedIdentity{}, ErrMalformedToken
	}
	clientCode, tag := body[:idx], body[idx+1:]
	if len(tag) != tagHexLen {
		return VerifiedIdentity{}, ErrMalformedToken
	}

	parsed, err := ParseClientCode(clientCode)
	if err != nil {
		return VerifiedIdentity{}, err
	}

	var want string
	switch {
	case keyed:
		if len(c.secret) == 0 {
			return VerifiedIdentity{}, fmt.Errorf("no MAC secret configured: %w", ErrTagMismatch)
		}
		want = c.keyedTag(clientCode, parsed.OwnerID)
	case c.allowLegacy:
		want = legacyTag(clientCode, parsed.OwnerID)
	default:
		return VerifiedIdentity{}, fmt.Errorf("legacy tokens disabled: %w", ErrTagMismatch)
	}
	if subtle.ConstantTimeCompare([]byte(tag), []byte(want)) != 1 {
		return VerifiedIdentity{}, ErrTagMismatch
	}

	return VerifiedIdentity{
		OwnerID:    parsed.OwnerID,
		ClientID:   parsed.ClientID,
		ClientCode: clientCode,
	}, nil
}

// legacyTag reproduces the original unkeyed derivation byte-for-byte: the
// first 8 hex characters of MD5(clientCode + "_SECURE_" + ownerId). Anyone
// who knows the rule can forge these, which is why keyed v2 tokens exist;
// the derivation itself must not change or every printed QR dies.
func legacyTag(clientCode string, ownerID int64) string {
	sum := md5.Sum([]byte(digestInput(clientCode, ownerID)))
	return hex.EncodeToString(sum[:])[:tagHexLen]
}

// keyedTag computes the v2 tag: HMAC-SHA256 over the same input string,
// truncated to the legacy tag width so token shape stays uniform.
func (c *Codec) keyedTag(clientCode string, ownerID int64) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(digestInput(clientCode, ownerID)))
	return hex.EncodeToString(mac.Sum(nil))[:tagHexLen]
}

func digestInput(clientCode string, ownerID int64) string {
	return clientCode + "_SECURE_" + strconv.FormatInt(ownerID, 10)
}
