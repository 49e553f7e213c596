package models

import "time"

// Client is an end-client (patient/customer) record. Code is the hierarchical
// identifier embedding the owner's code; it is nil for legacy records until
// first issuance or backfill, and immutable once set.
type Client struct {
	ID        int64     `db:"id"         json:"id"`
	OwnerID   int64     `db:"owner_id"   json:"owner_id"`
	Name      string    `db:"name"       json:"name"`
	Username  string    `db:"username"   json:"username"`
	Email     *string   `db:"email"      json:"email,omitempty"`
	Code      *string   `db:"code"       json:"code,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
