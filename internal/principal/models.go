// Package principal holds the identity & role store and the role assignment
// engine: one profile per external identity, exactly one role, and at most
// one active barangay administrator per barangay under concurrency.
package principal

import (
	"time"

	"balangay/internal/geo"
	id "balangay/pkg/domain"
	dErrors "balangay/pkg/domain-errors"
)

// RoleName identifies a role in the catalog.
type RoleName string

const (
	RoleSuperAdmin    RoleName = "SUPER_ADMIN"
	RoleBarangayAdmin RoleName = "BARANGAY_ADMIN"
	RoleResident      RoleName = "RESIDENT"
)

// ScopeLevel is the hierarchy depth a role's authority is anchored at.
type ScopeLevel string

const (
	ScopeNational ScopeLevel = "NATIONAL"
	ScopeBarangay ScopeLevel = "BARANGAY"
)

// Role is reference data: missing required roles are a configuration error,
// surfaced immediately and never retried.
type Role struct {
	Name  RoleName
	Scope ScopeLevel
}

// Principal is an authenticated identity's profile.
//
// Invariants:
//   - BarangayCode references a barangay-level unit when the role's scope is
//     ScopeBarangay, and is empty for nationally scoped roles
//   - RoleName is decided once at creation by the assignment engine and never
//     silently changed
//   - soft lifecycle: deactivation flips IsActive, rows are never deleted, so
//     the audit trail and per-barangay sequences stay intact
type Principal struct {
	ID                 id.PrincipalID        `json:"id"`
	ExternalIdentityID id.ExternalIdentityID `json:"external_identity_id"`
	BarangayCode       geo.Code              `json:"barangay_code,omitempty"`
	RoleName           RoleName              `json:"role"`
	IsActive           bool                  `json:"is_active"`
	CreatedAt          time.Time             `json:"created_at"`
	DeactivatedAt      *time.Time            `json:"deactivated_at,omitempty"`
}

// New constructs an active principal.
func New(pid id.PrincipalID, ext id.ExternalIdentityID, barangay geo.Code, role RoleName, now time.Time) (*Principal, error) {
	if pid.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal id is required")
	}
	if ext == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "external identity id is required")
	}
	if role != RoleSuperAdmin && barangay == "" {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "role %s requires a barangay binding", role)
	}
	return &Principal{
		ID:                 pid,
		ExternalIdentityID: ext,
		BarangayCode:       barangay,
		RoleName:           role,
		IsActive:           true,
		CreatedAt:          now,
	}, nil
}

// ApplyDeactivation flips the soft-delete flag. The caller persists the
// transition through the store so the admin slot frees atomically.
func (p *Principal) ApplyDeactivation(now time.Time) {
	p.IsActive = false
	p.DeactivatedAt = &now
}
