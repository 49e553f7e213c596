package models

import "time"

// OwnerCode is the stable per-owner code prefix. Exactly one row exists per
// owner; it is created lazily on first use and never regenerated, since every
// outstanding client QR embeds it.
type OwnerCode struct {
	OwnerID   int64     `db:"owner_id"   json:"owner_id"`
	Code      string    `db:"code"       json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
