package household

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"balangay/internal/access"
	"balangay/internal/audit"
	"balangay/internal/geo"
	householdmetrics "balangay/internal/household/metrics"
	"balangay/internal/principal"
	id "balangay/pkg/domain"
	dErrors "balangay/pkg/domain-errors"
	"balangay/pkg/platform/sentinel"
	"balangay/pkg/platform/tx"
	"balangay/pkg/requestcontext"
)

// migrationParallelism bounds concurrent per-barangay migration
// transactions. Distinct barangays never contend, so the bound exists only
// to cap connection use.
const migrationParallelism = 4

// PrincipalSource loads the acting principal's profile.
type PrincipalSource interface {
	GetPrincipal(ctx context.Context, pid id.PrincipalID) (*principal.Principal, error)
}

// Service creates households behind an access check and runs the one-shot
// legacy-code migration.
type Service struct {
	households Store
	principals PrincipalSource
	evaluator  *access.Evaluator
	catalog    *geo.Catalog
	audit      *audit.Emitter
	metrics    *householdmetrics.Metrics
	tx         tx.Runner
	log        *slog.Logger
}

type serviceConfig struct {
	audit   *audit.Emitter
	metrics *householdmetrics.Metrics
	tx      tx.Runner
	log     *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

func WithAudit(emitter *audit.Emitter) Option {
	return func(c *serviceConfig) { c.audit = emitter }
}

func WithMetrics(m *householdmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(c *serviceConfig) { c.tx = runner }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *serviceConfig) { c.log = log }
}

func NewService(households Store, principals PrincipalSource, evaluator *access.Evaluator, catalog *geo.Catalog, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = tx.NoopRunner{}
	}
	if cfg.log == nil {
		cfg.log = slog.Default()
	}
	return &Service{
		households: households,
		principals: principals,
		evaluator:  evaluator,
		catalog:    catalog,
		audit:      cfg.audit,
		metrics:    cfg.metrics,
		tx:         cfg.tx,
		log:        cfg.log,
	}
}

// CreateHousehold generates the next hierarchical code for the acting
// principal's barangay and persists the record. The counter bump and the
// insert share one transaction, so an aborted creation leaves at most an
// invisible gap in the sequence.
func (s *Service) CreateHousehold(ctx context.Context, actor id.PrincipalID, attrs Attributes) (*Record, error) {
	start := time.Now()

	p, err := s.principals.GetPrincipal(ctx, actor)
	if err != nil {
		return nil, err
	}
	if p.BarangayCode == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "acting principal has no barangay binding")
	}

	grant := s.evaluator.Authorize(p, access.OpWrite, p.BarangayCode)
	if !grant.Allowed {
		return nil, dErrors.Newf(dErrors.CodePermissionDenied, "household creation denied: %s", grant.Reason)
	}

	var rec *Record
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		seq, err := s.households.NextSequence(txCtx, p.BarangayCode)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "household sequence failed")
		}

		r := &Record{
			Code:         FormatCode(p.BarangayCode, seq),
			BarangayCode: p.BarangayCode,
			SeqNo:        seq,
			HeadName:     attrs.HeadName,
			AddressLine:  attrs.AddressLine,
			CreatedBy:    actor,
			CreatedAt:    requestcontext.Now(txCtx),
		}
		if err := s.households.Insert(txCtx, r); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// The counter guarantees fresh sequence numbers; a collision
				// here means the counter and the table disagree.
				return dErrors.New(dErrors.CodeConfiguration, "generated household code already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "household insert failed")
		}
		if err := s.audit.HouseholdCreated(txCtx, actor, r.Code); err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CodeIssued()
	s.metrics.ObserveCreate(start)
	s.log.Info("household created", "code", rec.Code, "barangay", rec.BarangayCode)
	return rec, nil
}

// GetHousehold loads one record by code.
func (s *Service) GetHousehold(ctx context.Context, code string) (*Record, error) {
	rec, err := s.households.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "household not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "household lookup failed")
	}
	return rec, nil
}

// MigrateLegacyCodes rewrites legacy household codes for the given
// barangays. Each barangay runs in its own transaction; distinct barangays
// run in parallel. Idempotent - a second run finds nothing to rewrite.
func (s *Service) MigrateLegacyCodes(ctx context.Context, barangays []geo.Code) ([]MigrationReport, error) {
	for _, b := range barangays {
		if !s.catalog.IsBarangay(b) {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%q is not a barangay-level code", b)
		}
	}

	var (
		mu      sync.Mutex
		reports []MigrationReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(migrationParallelism)

	for _, barangay := range barangays {
		barangay := barangay
		g.Go(func() error {
			var report MigrationReport
			err := s.tx.RunInTx(gctx, func(txCtx context.Context) error {
				var err error
				report, err = s.households.MigrateLegacy(txCtx, barangay)
				if err != nil {
					return err
				}
				detail := fmt.Sprintf("rewritten=%d members_repointed=%d", report.Rewritten, report.MembersRepointed)
				return s.audit.CodesMigrated(txCtx, string(barangay), detail)
			})
			if err != nil {
				return fmt.Errorf("migrate %s: %w", barangay, err)
			}

			s.metrics.BatchMigrated(report.Rewritten)
			s.log.Info("legacy codes migrated",
				"barangay", barangay,
				"rewritten", report.Rewritten,
				"members_repointed", report.MembersRepointed,
			)

			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
