package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the principal module: which roles the
// assignment engine hands out and how often the admin-slot race resolves to
// the retry path.
type Metrics struct {
	RolesAssigned      *prometheus.CounterVec
	AdminSlotConflicts prometheus.Counter
	SignupConflicts    prometheus.Counter
	CreateDuration     prometheus.Histogram
}

// New creates a Metrics instance with all principal module metrics registered.
func New() *Metrics {
	return &Metrics{
		RolesAssigned: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "balangay_roles_assigned_total",
			Help: "Roles decided at principal creation, by role name",
		}, []string{"role"}),
		AdminSlotConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "balangay_admin_slot_conflicts_total",
			Help: "Admin-slot races resolved by downgrading to RESIDENT",
		}),
		SignupConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "balangay_signup_conflicts_total",
			Help: "Duplicate signups answered with the existing principal",
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "balangay_principal_create_duration_seconds",
			Help:    "Duration of CreatePrincipal operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// RoleAssigned records a decided role.
func (m *Metrics) RoleAssigned(role string) {
	if m == nil {
		return
	}
	m.RolesAssigned.WithLabelValues(role).Inc()
}

// AdminSlotConflict records a race resolved by the RESIDENT retry.
func (m *Metrics) AdminSlotConflict() {
	if m == nil {
		return
	}
	m.AdminSlotConflicts.Inc()
}

// SignupConflict records an idempotent duplicate signup.
func (m *Metrics) SignupConflict() {
	if m == nil {
		return
	}
	m.SignupConflicts.Inc()
}

// ObserveCreate records the duration of a CreatePrincipal operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	if m == nil {
		return
	}
	m.CreateDuration.Observe(time.Since(start).Seconds())
}
