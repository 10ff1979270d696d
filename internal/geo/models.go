// Package geo holds the geographic hierarchy catalog: the four-level PSGC
// tree (region → province → city/municipality → barangay) that scopes every
// principal and every access-controlled row. The catalog is reference data,
// read-only at request time, and served from an immutable in-process
// snapshot so the access evaluator never queries the store on the hot path.
package geo

import (
	dErrors "balangay/pkg/domain-errors"
)

// Code is a PSGC geographic code, unique within its level.
type Code string

func (c Code) String() string { return string(c) }

// Level is the depth of a unit in the administrative hierarchy.
type Level string

const (
	LevelRegion   Level = "REGION"
	LevelProvince Level = "PROVINCE"
	LevelCity     Level = "CITY"
	LevelBarangay Level = "BARANGAY"
)

// depth positions each level in the tree; regions are roots.
func (l Level) depth() int {
	switch l {
	case LevelRegion:
		return 0
	case LevelProvince:
		return 1
	case LevelCity:
		return 2
	case LevelBarangay:
		return 3
	}
	return -1
}

// ParseLevel validates a level string from storage.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelRegion, LevelProvince, LevelCity, LevelBarangay:
		return Level(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeConfiguration, "unknown geographic level %q", s)
}

// Unit is one node of the hierarchy. ParentCode is empty for regions and
// otherwise references a unit exactly one level up.
type Unit struct {
	Code       Code
	Level      Level
	ParentCode Code
	Name       string
}
