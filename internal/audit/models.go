// Package audit records the administrative actions that justify the
// soft-delete lifecycle: role decisions, deactivations, and code
// migrations. Events append to the same transaction as the write they
// describe, so a rolled-back operation leaves no audit residue.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "balangay/pkg/domain"
)

// Action names follow "<subject>.<verb past tense>".
const (
	ActionRoleAssigned          = "role.assigned"
	ActionPrincipalDeactivated  = "principal.deactivated"
	ActionHouseholdCreated      = "household.created"
	ActionHouseholdCodesMigrate = "household.codes_migrated"
)

// Event is one append-only audit record.
type Event struct {
	ID          uuid.UUID
	Action      string
	PrincipalID id.PrincipalID
	Subject     string
	Detail      string
	RequestID   string
	OccurredAt  time.Time
}
