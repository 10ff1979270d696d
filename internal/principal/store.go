package principal

import (
	"context"
	"time"

	"balangay/internal/geo"
	id "balangay/pkg/domain"
)

// Store persists principal profiles.
//
// Create settles the admin-slot race inside the store: inserting a
// BARANGAY_ADMIN for a barangay whose active admin slot is occupied fails
// with sentinel.ErrAdminSlotTaken, and a duplicate external identity fails
// with sentinel.ErrConflict. Both implementations make the check-and-insert
// atomic with respect to concurrent callers (partial unique index in
// Postgres, one mutex hold in memory).
type Store interface {
	Create(ctx context.Context, p *Principal) error
	FindByID(ctx context.Context, pid id.PrincipalID) (*Principal, error)
	FindByExternalIdentity(ctx context.Context, ext id.ExternalIdentityID) (*Principal, error)
	// Deactivate flips is_active off and returns the updated principal.
	// Returns sentinel.ErrNotFound for unknown IDs and
	// sentinel.ErrInvalidState when the principal is already inactive.
	Deactivate(ctx context.Context, pid id.PrincipalID, now time.Time) (*Principal, error)
	// CountActiveAdmins reports the admin-slot cardinality for a barangay.
	CountActiveAdmins(ctx context.Context, barangay geo.Code) (int, error)
}

// RoleStore reads the role catalog. Returns sentinel.ErrNotFound for roles
// missing from the catalog.
type RoleStore interface {
	FindByName(ctx context.Context, name RoleName) (*Role, error)
}
