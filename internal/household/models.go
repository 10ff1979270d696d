// Package household generates hierarchical, globally unique household codes
// and owns the per-barangay sequence counters behind them.
package household

import (
	"time"

	"balangay/internal/geo"
	id "balangay/pkg/domain"
)

// Record is one household row. Code deterministically encodes the owning
// barangay and the per-barangay sequence number; sequence numbers are
// strictly increasing and gap-tolerant (aborted creations leave gaps,
// numbers are never reused).
type Record struct {
	Code         string         `json:"code"`
	BarangayCode geo.Code       `json:"barangay_code"`
	SeqNo        int64          `json:"seq_no"`
	HeadName     string         `json:"head_name"`
	AddressLine  string         `json:"address_line"`
	CreatedBy    id.PrincipalID `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Attributes are the caller-supplied household fields.
type Attributes struct {
	HeadName    string `json:"head_name"`
	AddressLine string `json:"address_line"`
}

// MigrationReport summarizes one barangay's legacy-code migration batch.
type MigrationReport struct {
	BarangayCode     geo.Code `json:"barangay_code"`
	Rewritten        int      `json:"rewritten"`
	MembersRepointed int      `json:"members_repointed"`
	RemainingLegacy  int      `json:"remaining_legacy"`
}
