package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	id "balangay/pkg/domain"
	"balangay/pkg/requestcontext"
)

// Emitter builds and appends audit events. A nil-store emitter is a no-op,
// so services never need to branch on whether auditing is wired.
type Emitter struct {
	store Store
	log   *slog.Logger
}

func NewEmitter(store Store, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{store: store, log: log}
}

func (e *Emitter) emit(ctx context.Context, action string, principalID id.PrincipalID, subject, detail string) error {
	if e == nil || e.store == nil {
		return nil
	}
	event := Event{
		ID:          uuid.New(),
		Action:      action,
		PrincipalID: principalID,
		Subject:     subject,
		Detail:      detail,
		RequestID:   requestcontext.RequestID(ctx),
		OccurredAt:  requestcontext.Now(ctx),
	}
	if err := e.store.Append(ctx, event); err != nil {
		e.log.Error("audit append failed", "action", action, "err", err)
		return err
	}
	return nil
}

// RoleAssigned records the role decided for a new principal.
func (e *Emitter) RoleAssigned(ctx context.Context, principalID id.PrincipalID, role, barangayCode string) error {
	return e.emit(ctx, ActionRoleAssigned, principalID, barangayCode, role)
}

// PrincipalDeactivated records a soft-delete.
func (e *Emitter) PrincipalDeactivated(ctx context.Context, principalID id.PrincipalID) error {
	return e.emit(ctx, ActionPrincipalDeactivated, principalID, "", "")
}

// HouseholdCreated records a generated household code.
func (e *Emitter) HouseholdCreated(ctx context.Context, createdBy id.PrincipalID, code string) error {
	return e.emit(ctx, ActionHouseholdCreated, createdBy, code, "")
}

// CodesMigrated records one barangay's legacy-code migration batch.
func (e *Emitter) CodesMigrated(ctx context.Context, barangayCode, detail string) error {
	return e.emit(ctx, ActionHouseholdCodesMigrate, id.PrincipalID{}, barangayCode, detail)
}
