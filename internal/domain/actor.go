package domain

import "github.com/google/uuid"

// Role identifies the kind of caller performing an operation.
type Role string

const (
	RoleTransporter Role = "transporter"
	RoleDriver      Role = "driver"
	RoleCompanyUser Role = "company_user"
	RolePumpOwner   Role = "pump_owner"
	RolePumpStaff   Role = "pump_staff"
	RoleAdmin       Role = "admin"
)

// Actor is the resolved identity of the caller. Authentication happens
// upstream; services only see this value.
type Actor struct {
	ID   uuid.UUID
	Role Role

	// TransporterID is set for company users and drivers that act on
	// behalf of a transporter. For transporters it equals ID.
	TransporterID uuid.UUID

	// PumpOwnerID is set for pump staff; for pump owners it equals ID.
	PumpOwnerID uuid.UUID

	// Permissions holds the named grants of a company user, such as
	// "trips.create" or "trips.cancel".
	Permissions []string
}

// HasPermission reports whether the actor carries the named grant.
// Transporters and admins implicitly hold every permission.
func (a Actor) HasPermission(name string) bool {
	if a.Role == RoleTransporter || a.Role == RoleAdmin {
		return true
	}
	for _, p := range a.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor is a platform administrator.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// ActsForTransporter reports whether the actor operates under the given
// transporter account.
func (a Actor) ActsForTransporter(transporterID uuid.UUID) bool {
	switch a.Role {
	case RoleTransporter:
		return a.ID == transporterID
	case RoleCompanyUser, RoleDriver:
		return a.TransporterID == transporterID
	case RoleAdmin:
		return true
	}
	return false
}
