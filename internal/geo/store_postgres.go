package geo

import (
	"context"
	"database/sql"
	"fmt"
)

// LoadCatalog reads all geographic units from PostgreSQL and builds the
// in-process snapshot. Called once at startup; there is no steady-state
// query path against geo_units.
func LoadCatalog(ctx context.Context, db *sql.DB) (*Catalog, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT code, level, COALESCE(parent_code, ''), name
		FROM geo_units
	`)
	if err != nil {
		return nil, fmt.Errorf("query geo units: %w", err)
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var (
			u        Unit
			rawLevel string
		)
		if err := rows.Scan(&u.Code, &rawLevel, &u.ParentCode, &u.Name); err != nil {
			return nil, fmt.Errorf("scan geo unit: %w", err)
		}
		level, err := ParseLevel(rawLevel)
		if err != nil {
			return nil, err
		}
		u.Level = level
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate geo units: %w", err)
	}

	return NewCatalog(units)
}
