// Package access decides whether a principal may act on a row tagged with a
// geographic code. The evaluator is pure - same inputs, same grant - so the
// policy is unit-testable without a store and cheap enough for every
// data-access request.
package access

// Operation is the kind of access requested.
type Operation string

const (
	OpRead  Operation = "READ"
	OpWrite Operation = "WRITE"
)

// ParseOperation validates an operation from the wire.
func ParseOperation(s string) (Operation, bool) {
	switch Operation(s) {
	case OpRead, OpWrite:
		return Operation(s), true
	}
	return "", false
}

// Reason explains a grant outcome. Denials are valid outcomes, not errors.
type Reason string

const (
	// ReasonGlobalScope: SUPER_ADMIN, synthetic root ancestor of every unit.
	ReasonGlobalScope Reason = "GLOBAL_SCOPE"
	// ReasonWithinScope: target equals or descends from the bound unit.
	ReasonWithinScope Reason = "WITHIN_SCOPE"
	// ReasonOwnershipRequired: granted on the geographic half only; the
	// caller must additionally check row ownership (resident writes).
	ReasonOwnershipRequired Reason = "OWNERSHIP_REQUIRED"
	// ReasonPrincipalInactive: deactivated principals are always denied.
	ReasonPrincipalInactive Reason = "PRINCIPAL_INACTIVE"
	// ReasonOutOfScope: target is an ancestor, a sibling, or otherwise
	// outside the bound subtree.
	ReasonOutOfScope Reason = "OUT_OF_SCOPE"
	// ReasonInvalidGeoCode: target is not in the catalog.
	ReasonInvalidGeoCode Reason = "INVALID_GEO_CODE"
)

// Grant is the recomputed-per-request result of evaluating a principal
// against a target geographic code. Never persisted.
type Grant struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

func allow(reason Reason) Grant { return Grant{Allowed: true, Reason: reason} }
func deny(reason Reason) Grant  { return Grant{Allowed: false, Reason: reason} }
