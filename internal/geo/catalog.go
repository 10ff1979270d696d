package geo

import (
	dErrors "balangay/pkg/domain-errors"
)

// Catalog is an immutable snapshot of the geographic hierarchy. It is built
// once at startup and safe for concurrent use without locking; the reference
// data changes only via out-of-band administrative loads followed by a
// restart or re-load.
type Catalog struct {
	units map[Code]Unit
}

// NewCatalog validates the unit set and builds the snapshot.
//
// Enforced invariants:
//   - codes are unique
//   - every non-region unit has a parent exactly one level up
//   - regions have no parent
func NewCatalog(units []Unit) (*Catalog, error) {
	byCode := make(map[Code]Unit, len(units))
	for _, u := range units {
		if u.Code == "" {
			return nil, dErrors.New(dErrors.CodeConfiguration, "geographic unit with empty code")
		}
		if _, dup := byCode[u.Code]; dup {
			return nil, dErrors.Newf(dErrors.CodeConfiguration, "duplicate geographic code %q", u.Code)
		}
		if u.Level.depth() < 0 {
			return nil, dErrors.Newf(dErrors.CodeConfiguration, "unit %q has unknown level %q", u.Code, u.Level)
		}
		byCode[u.Code] = u
	}

	for _, u := range byCode {
		if u.Level == LevelRegion {
			if u.ParentCode != "" {
				return nil, dErrors.Newf(dErrors.CodeConfiguration, "region %q must not have a parent", u.Code)
			}
			continue
		}
		parent, ok := byCode[u.ParentCode]
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeConfiguration, "unit %q references missing parent %q", u.Code, u.ParentCode)
		}
		if parent.Level.depth() != u.Level.depth()-1 {
			return nil, dErrors.Newf(dErrors.CodeConfiguration,
				"unit %q (level %s) has parent %q at level %s", u.Code, u.Level, parent.Code, parent.Level)
		}
	}

	return &Catalog{units: byCode}, nil
}

// Lookup returns the unit for a code.
func (c *Catalog) Lookup(code Code) (Unit, bool) {
	u, ok := c.units[code]
	return u, ok
}

// Exists reports whether the code is in the catalog.
func (c *Catalog) Exists(code Code) bool {
	_, ok := c.units[code]
	return ok
}

// IsBarangay reports whether the code names a barangay-level unit.
func (c *Catalog) IsBarangay(code Code) bool {
	u, ok := c.units[code]
	return ok && u.Level == LevelBarangay
}

// IsSelfOrDescendant reports whether target equals ancestor or resolves to
// it by walking parent links. Access is monotone down the hierarchy, never
// up or sideways, so this is the only containment question the evaluator
// asks. Unknown codes are never contained.
func (c *Catalog) IsSelfOrDescendant(target, ancestor Code) bool {
	if ancestor == "" {
		return false
	}
	cur, ok := c.units[target]
	if !ok {
		return false
	}
	for {
		if cur.Code == ancestor {
			return true
		}
		if cur.ParentCode == "" {
			return false
		}
		parent, ok := c.units[cur.ParentCode]
		if !ok {
			return false
		}
		cur = parent
	}
}

// Len returns the number of units in the snapshot.
func (c *Catalog) Len() int { return len(c.units) }
