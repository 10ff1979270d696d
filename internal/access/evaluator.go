package access

import (
	"balangay/internal/geo"
	"balangay/internal/principal"
)

// Evaluator applies the geographic access policy against the catalog
// snapshot. It performs no I/O: hierarchy walks run against the in-process
// catalog, keeping the hot path free of store queries.
type Evaluator struct {
	catalog *geo.Catalog
}

func NewEvaluator(catalog *geo.Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Authorize evaluates the policy rules in order; first match wins.
//
//  1. Inactive principals are denied outright.
//  2. SUPER_ADMIN holds global scope.
//  3. Targets missing from the catalog are denied as invalid.
//  4. Access is monotone down the hierarchy: the target must equal or
//     descend from the principal's bound unit - never up, never sideways.
//  5. Resident writes pass only the geographic half; the caller completes
//     the ownership check against the row's own owner field.
func (e *Evaluator) Authorize(p *principal.Principal, op Operation, target geo.Code) Grant {
	if p == nil || !p.IsActive {
		return deny(ReasonPrincipalInactive)
	}
	if p.RoleName == principal.RoleSuperAdmin {
		return allow(ReasonGlobalScope)
	}
	if !e.catalog.Exists(target) {
		return deny(ReasonInvalidGeoCode)
	}
	if p.BarangayCode == "" {
		return deny(ReasonOutOfScope)
	}
	if !e.catalog.IsSelfOrDescendant(target, p.BarangayCode) {
		return deny(ReasonOutOfScope)
	}
	if p.RoleName == principal.RoleResident && op == OpWrite {
		return allow(ReasonOwnershipRequired)
	}
	return allow(ReasonWithinScope)
}
