package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey authenticates staff/admin API access. Raw keys are shown once at
// creation; only the bcrypt hash is stored. Role comes from the owning user.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	UserID     int64      `db:"user_id"      json:"user_id"`
	Name       string     `db:"name"         json:"name"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"key_prefix"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	DeletedAt  *time.Time `db:"deleted_at"   json:"-"`
	CreatedAt  time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"   json:"updated_at"`
}
