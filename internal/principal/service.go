package principal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"balangay/internal/audit"
	"balangay/internal/geo"
	principalmetrics "balangay/internal/principal/metrics"
	id "balangay/pkg/domain"
	dErrors "balangay/pkg/domain-errors"
	"balangay/pkg/platform/sentinel"
	"balangay/pkg/platform/tx"
	"balangay/pkg/requestcontext"
)

// ProfileCache is an optional read-through cache for the authorize hot path.
// Get returns (nil, nil) on a miss. Cache failures are never fatal; the
// store remains the source of truth.
type ProfileCache interface {
	Get(ctx context.Context, pid id.PrincipalID) (*Principal, error)
	Set(ctx context.Context, p *Principal) error
	Invalidate(ctx context.Context, pid id.PrincipalID) error
}

// Service is the role assignment engine plus principal lifecycle.
type Service struct {
	principals Store
	roles      RoleStore
	catalog    *geo.Catalog
	cache      ProfileCache
	audit      *audit.Emitter
	metrics    *principalmetrics.Metrics
	tx         tx.Runner
	log        *slog.Logger
}

type serviceConfig struct {
	cache   ProfileCache
	audit   *audit.Emitter
	metrics *principalmetrics.Metrics
	tx      tx.Runner
	log     *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

func WithCache(cache ProfileCache) Option {
	return func(c *serviceConfig) { c.cache = cache }
}

func WithAudit(emitter *audit.Emitter) Option {
	return func(c *serviceConfig) { c.audit = emitter }
}

func WithMetrics(m *principalmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(c *serviceConfig) { c.tx = runner }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *serviceConfig) { c.log = log }
}

func NewService(principals Store, roles RoleStore, catalog *geo.Catalog, opts ...Option) *Service {
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
		principals: principals,
		roles:      roles,
		catalog:    catalog,
		cache:      cfg.cache,
		audit:      cfg.audit,
		metrics:    cfg.metrics,
		tx:         cfg.tx,
		log:        cfg.log,
	}
}

// CreatePrincipal decides the role for a new signup and writes the profile.
//
// The first active principal for a barangay becomes its BARANGAY_ADMIN;
// everyone after that is a RESIDENT. The decision and the insert are atomic
// with respect to concurrent signups for the same barangay: the insert is
// attempted optimistically as admin, and losing the slot race downgrades to
// a single bounded retry as resident. Idempotent per external identity -
// a repeat call returns the existing principal together with a conflict
// error, never a second row.
func (s *Service) CreatePrincipal(ctx context.Context, extRaw, barangayRaw string) (*Principal, error) {
	start := time.Now()

	ext, err := id.ParseExternalIdentityID(extRaw)
	if err != nil {
		return nil, err
	}
	barangay := geo.Code(barangayRaw)
	if !s.catalog.Exists(barangay) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown geographic code %q", barangayRaw)
	}
	if !s.catalog.IsBarangay(barangay) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%q is not a barangay-level code", barangayRaw)
	}

	if existing, err := s.principals.FindByExternalIdentity(ctx, ext); err == nil {
		s.metrics.SignupConflict()
		return existing, dErrors.New(dErrors.CodeConflict, "principal already exists for this identity")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "principal lookup failed")
	}

	if err := s.requireRoles(ctx, RoleBarangayAdmin, RoleResident); err != nil {
		return nil, err
	}

	var created *Principal
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)

		p, err := New(id.NewPrincipalID(), ext, barangay, RoleBarangayAdmin, now)
		if err != nil {
			return err
		}
		createErr := s.principals.Create(txCtx, p)
		if errors.Is(createErr, sentinel.ErrAdminSlotTaken) {
			// Lost the slot race; the constraint guarantees the retry cannot
			// itself collide on the slot.
			s.metrics.AdminSlotConflict()
			p, err = New(id.NewPrincipalID(), ext, barangay, RoleResident, now)
			if err != nil {
				return err
			}
			createErr = s.principals.Create(txCtx, p)
			if errors.Is(createErr, sentinel.ErrAdminSlotTaken) {
				return dErrors.New(dErrors.CodeConfiguration, "resident insert rejected by the admin-slot constraint")
			}
		}
		if createErr != nil {
			if errors.Is(createErr, sentinel.ErrConflict) {
				return createErr
			}
			return dErrors.Wrap(createErr, dErrors.CodeUnavailable, "principal insert failed")
		}

		if err := s.audit.RoleAssigned(txCtx, p.ID, string(p.RoleName), string(barangay)); err != nil {
			return err
		}
		created = p
		return nil
	})
	if errors.Is(err, sentinel.ErrConflict) {
		// A concurrent signup for the same identity won the insert.
		existing, findErr := s.principals.FindByExternalIdentity(ctx, ext)
		if findErr != nil {
			return nil, dErrors.Wrap(findErr, dErrors.CodeUnavailable, "principal lookup after conflict failed")
		}
		s.metrics.SignupConflict()
		return existing, dErrors.New(dErrors.CodeConflict, "principal already exists for this identity")
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RoleAssigned(string(created.RoleName))
	s.metrics.ObserveCreate(start)
	s.log.Info("principal created",
		"principal_id", created.ID.String(),
		"role", created.RoleName,
		"barangay", created.BarangayCode,
	)
	return created, nil
}

// GetPrincipal loads a profile, preferring the cache when configured.
func (s *Service) GetPrincipal(ctx context.Context, pid id.PrincipalID) (*Principal, error) {
	if pid.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal id is required")
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, pid); err != nil {
			s.log.Warn("profile cache read failed", "err", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	p, err := s.principals.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "principal lookup failed")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.log.Warn("profile cache write failed", "err", err)
		}
	}
	return p, nil
}

// Deactivate soft-deletes a principal. The row stays for the audit trail;
// the admin slot for its barangay frees immediately.
func (s *Service) Deactivate(ctx context.Context, pid id.PrincipalID) (*Principal, error) {
	if pid.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal id is required")
	}

	var updated *Principal
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.principals.Deactivate(txCtx, pid, requestcontext.Now(txCtx))
		if err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeNotFound, "principal not found")
			case errors.Is(err, sentinel.ErrInvalidState):
				return dErrors.New(dErrors.CodeConflict, "principal is already inactive")
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "principal deactivation failed")
		}
		if err := s.audit.PrincipalDeactivated(txCtx, pid); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Invalidate after commit so a racing read cannot repopulate the cache
	// with the still-active row from inside the transaction.
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, pid); err != nil {
			s.log.Warn("profile cache invalidation failed", "principal_id", pid.String(), "err", err)
		}
	}

	s.log.Info("principal deactivated", "principal_id", pid.String())
	return updated, nil
}

// requireRoles verifies the role catalog holds the definitions the engine
// needs. Missing roles are a configuration error, fatal and never retried.
func (s *Service) requireRoles(ctx context.Context, names ...RoleName) error {
	for _, name := range names {
		if _, err := s.roles.FindByName(ctx, name); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeConfiguration, "role catalog is missing %s", name)
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "role catalog lookup failed")
		}
	}
	return nil
}
