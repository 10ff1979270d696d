package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for household code generation and the
// legacy-code migration batches.
type Metrics struct {
	CodesIssued      prometheus.Counter
	CreateDuration   prometheus.Histogram
	MigratedCodes    prometheus.Counter
	MigrationBatches prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		CodesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "balangay_household_codes_issued_total",
			Help: "Household codes generated",
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "balangay_household_create_duration_seconds",
			Help:    "Duration of CreateHousehold operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		MigratedCodes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "balangay_household_codes_migrated_total",
			Help: "Legacy household codes rewritten to the hierarchical format",
		}),
		MigrationBatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "balangay_household_migration_batches_total",
			Help: "Per-barangay migration batches completed",
		}),
	}
}

func (m *Metrics) CodeIssued() {
	if m == nil {
		return
	}
	m.CodesIssued.Inc()
}

func (m *Metrics) ObserveCreate(start time.Time) {
	if m == nil {
		return
	}
	m.CreateDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) BatchMigrated(rewritten int) {
	if m == nil {
		return
	}
	m.MigrationBatches.Inc()
	m.MigratedCodes.Add(float64(rewritten))
}
