// Package tenant defines the capability/visibility scope handed to every
// other subsystem, and the resolver that turns a verified activation token
// into a client-scoped session.
package tenant

import "github.com/agendly/clientlink/pkg/models"

// Feature tags gate subsystem access per role.
const (
	FeatureAppointments  = "appointments"
	FeatureClients       = "clients"
	FeaturePayments      = "payments"
	FeatureReports       = "reports"
	FeatureNotifications = "notifications"
	FeatureLicensing     = "licensing"
	FeatureProfile       = "profile"
)

// Permissions are the derived capability booleans consumed at data-access
// boundaries.
type Permissions struct {
	CanAccessGlobalData bool `json:"can_access_global_data"`
	CanManagePayments   bool `json:"can_manage_payments"`
	CanManageClients    bool `json:"can_manage_clients"`
}

// Context is the visibility scope of an authenticated principal. It is
// constructed fresh per request, never persisted, and fully re-derivable
// from (UserID, UserType).
type Context struct {
	UserID      int64       `json:"user_id"`
	UserType    string      `json:"user_type"`
	IsIsolated  bool        `json:"is_isolated"`
	Features    []string    `json:"features"`
	Permissions Permissions `json:"permissions"`
}

var featuresByType = map[string][]string{
	models.UserTypeAdmin: {
		FeatureAppointments, FeatureClients, FeaturePayments,
		FeatureReports, FeatureNotifications, FeatureLicensing, FeatureProfile,
	},
	models.UserTypeCustomer: {
		FeatureAppointments, FeatureClients, FeaturePayments,
		FeatureNotifications, FeatureProfile,
	},
	models.UserTypeStaff: {
		FeatureAppointments, FeatureClients, FeatureProfile,
	},
	models.UserTypeClient: {
		FeatureAppointments, FeatureProfile,
	},
}

// NewContext builds the tenant context for a principal. Every role except
// admin is isolated to its own data.
func NewContext(userID int64, userType string) Context {
	isAdmin := userType == models.UserTypeAdmin
	return Context{
		UserID:     userID,
		UserType:   userType,
		IsIsolated: !isAdmin,
		Features:   featuresByType[userType],
		Permissions: Permissions{
			CanAccessGlobalData: isAdmin,
			CanManagePayments:   isAdmin,
			CanManageClients:    isAdmin || userType == models.UserTypeCustomer,
		},
	}
}

// HasFeature reports whether the context's role carries a feature tag.
func (c Context) HasFeature(feature string) bool {
	for _, f := range c.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// CanAccessOwner reports whether the principal may touch data owned by the
// given owner id. This is the one tenant-isolation predicate; every
// data-access path goes through it rather than re-implementing the
// admin-vs-owner check per handler.
func (c Context) CanAccessOwner(ownerID int64) bool {
	return c.Permissions.CanAccessGlobalData || c.UserID == ownerID
}

// FilterClients applies the tenant-isolation predicate to a record set:
// admin sees everything, everyone else only records they own.
func FilterClients(records []*models.Client, c Context) []*models.Client {
	if c.Permissions.CanAccessGlobalData {
		return records
	}
	filtered := make([]*models.Client, 0, len(records))
	for _, r := range records {
		if r.OwnerID == c.UserID {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
