// Package domain holds the typed identifiers shared across modules. Distinct
// types keep principal and geographic identifiers from being mixed up at
// compile time.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "balangay/pkg/domain-errors"
)

// PrincipalID identifies a principal profile.
type PrincipalID uuid.UUID

func NewPrincipalID() PrincipalID {
	return PrincipalID(uuid.New())
}

// ParsePrincipalID validates and parses a principal ID from its string form.
// IDs must be valid, non-nil UUIDs.
func ParsePrincipalID(s string) (PrincipalID, error) {
	if s == "" {
		return PrincipalID{}, dErrors.New(dErrors.CodeInvalidInput, "principal id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return PrincipalID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "principal id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return PrincipalID{}, dErrors.New(dErrors.CodeInvalidInput, "principal id must not be the nil UUID")
	}
	return PrincipalID(parsed), nil
}

func (id PrincipalID) String() string { return uuid.UUID(id).String() }

func (id PrincipalID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText keeps the string form on the wire; a defined type does not
// inherit uuid.UUID's encoding methods.
func (id PrincipalID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *PrincipalID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ExternalIdentityID is the identity-provider subject a principal is keyed by.
// Exactly one principal exists per external identity.
type ExternalIdentityID string

// ParseExternalIdentityID trims and validates an external identity ID.
func ParseExternalIdentityID(s string) (ExternalIdentityID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "external identity id is required")
	}
	if len(s) > 255 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "external identity id must be 255 characters or less")
	}
	return ExternalIdentityID(s), nil
}

func (id ExternalIdentityID) String() string { return string(id) }
