// Package identity implements the hierarchical owner/client code scheme and
// the stateless activation-token codec built on top of it.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Client codes form a closed grammar: an owner code prefix, the literal
// CLIENT marker, the globally unique client id, and a 4-character tag.
// Owner ids are zero-padded to a minimum of three digits; ids beyond 999
// simply use more digits.
var (
	ownerCodeRe  = regexp.MustCompile(`^PROF_(\d{3,})_([A-Z0-9]{4})$`)
	clientCodeRe = regexp.MustCompile(`^PROF_(\d{3,})_([A-Z0-9]{4})_CLIENT_(\d+)_([A-Z0-9]{4})$`)
)

// BuildOwnerCode formats an owner code from its id and tag.
func BuildOwnerCode(ownerID int64, tag string) string {
	return fmt.Sprintf("PROF_%03d_%s", ownerID, tag)
}

// BuildClientCode formats a client code under the given owner code.
func BuildClientCode(ownerCode string, clientID int64, tag string) string {
	return fmt.Sprintf("%s_CLIENT_%d_%s", ownerCode, clientID, tag)
}

// ParsedClientCode holds the components of a valid client code.
type ParsedClientCode struct {
	OwnerID   int64
	OwnerTag  string
	ClientID  int64
	ClientTag string
}

// ValidOwnerCode reports whether s matches the owner-code grammar.
func ValidOwnerCode(s string) bool {
	return ownerCodeRe.MatchString(s)
}

// ParseClientCode validates s against the closed grammar and extracts its
// components. Any string outside the grammar is rejected before further
// processing; codes from older schemes never parse.
func ParseClientCode(s string) (ParsedClientCode, error) {
	m := clientCodeRe.FindStringSubmatch(s)
	if m == nil {
		return ParsedClientCode{}, ErrInvalidCodeFormat
	}
	ownerID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return ParsedClientCode{}, ErrInvalidCodeFormat
	}
	clientID, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return ParsedClientCode{}, ErrInvalidCodeFormat
	}
	return ParsedClientCode{
		OwnerID:   ownerID,
		OwnerTag:  m[2],
		ClientID:  clientID,
		ClientTag: m[4],
	}, nil
}

// NewTag derives a 4-character uppercase hex tag from the given id and a
// random nonce. Tags only disambiguate codes for display and debugging; the
// full id participates in token verification, so a tag collision across
// owners is cosmetic.
func NewTag(id int64) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(id))
	if _, err := rand.Read(buf[8:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to the
		// id alone rather than returning an error from a display concern.
		copy(buf[8:], buf[:8])
	}
	sum := sha256.Sum256(buf[:])
	return strings.ToUpper(fmt.Sprintf("%x", sum[:2]))
}
