// Package models contains shared data models used across the ClientLink codebase.
package models

import "time"

const (
	UserTypeAdmin    = "admin"
	UserTypeCustomer = "customer"
	UserTypeStaff    = "staff"
	UserTypeClient   = "client"
)

// User is a tenant-owning account: the professional, staff member, or admin
// that client records belong to. Clients authenticate separately via
// activation tokens and never appear in this table.
type User struct {
	ID        int64     `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Email     string    `db:"email"      json:"email"`
	UserType  string    `db:"user_type"  json:"user_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
