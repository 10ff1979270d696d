package access

import (
	"context"
	"log/slog"

	accessmetrics "balangay/internal/access/metrics"
	"balangay/internal/geo"
	"balangay/internal/principal"
	id "balangay/pkg/domain"
)

// PrincipalSource loads the requester's profile; satisfied by the principal
// service (which layers the cache) or a bare store in tests.
type PrincipalSource interface {
	GetPrincipal(ctx context.Context, pid id.PrincipalID) (*principal.Principal, error)
}

// Service answers checkAccess requests: load the requester's profile, run
// the pure evaluator, count the outcome.
type Service struct {
	principals PrincipalSource
	evaluator  *Evaluator
	metrics    *accessmetrics.Metrics
	log        *slog.Logger
}

func NewService(principals PrincipalSource, evaluator *Evaluator, metrics *accessmetrics.Metrics, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		principals: principals,
		evaluator:  evaluator,
		metrics:    metrics,
		log:        log,
	}
}

// CheckAccess evaluates whether the principal may perform op on rows tagged
// with target. A denial is a valid result, not an error; errors mean the
// requester's profile could not be loaded.
func (s *Service) CheckAccess(ctx context.Context, pid id.PrincipalID, op Operation, target geo.Code) (Grant, error) {
	p, err := s.principals.GetPrincipal(ctx, pid)
	if err != nil {
		return Grant{}, err
	}

	grant := s.evaluator.Authorize(p, op, target)
	s.metrics.Decision(string(op), grant.Allowed, string(grant.Reason))
	s.log.Debug("access decision",
		"principal_id", pid.String(),
		"operation", op,
		"target", target,
		"allowed", grant.Allowed,
		"reason", grant.Reason,
	)
	return grant, nil
}
