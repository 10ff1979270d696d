package household

import (
	"context"

	"balangay/internal/geo"
)

// Store persists households and owns the per-barangay sequence counters.
//
// NextSequence is a single atomic increment-and-read scoped by barangay;
// two concurrent calls for the same barangay never return the same value.
// Called inside the same transaction as Insert so an aborted creation rolls
// the counter back with it (gaps from aborted transactions are acceptable,
// reuse is not).
type Store interface {
	NextSequence(ctx context.Context, barangay geo.Code) (int64, error)
	Insert(ctx context.Context, rec *Record) error
	FindByCode(ctx context.Context, code string) (*Record, error)
	ListByBarangay(ctx context.Context, barangay geo.Code) ([]*Record, error)
	// MigrateLegacy rewrites every legacy-format code in the barangay to the
	// hierarchical format and repoints household_members references. Must run
	// inside one transaction per barangay; idempotent.
	MigrateLegacy(ctx context.Context, barangay geo.Code) (MigrationReport, error)
}
