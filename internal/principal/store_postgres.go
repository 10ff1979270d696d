package principal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"balangay/internal/geo"
	id "balangay/pkg/domain"
	"balangay/pkg/platform/sentinel"
	txcontext "balangay/pkg/platform/tx"
)

const (
	pqUniqueViolation        = "23505"
	constraintExternalID     = "principals_external_identity_id_key"
	constraintOneActiveAdmin = "principals_one_active_admin"
)

// PostgresStore persists principals in PostgreSQL. The admin-slot invariant
// lives in the principals_one_active_admin partial unique index, used as the
// ON CONFLICT arbiter so a losing concurrent insert surfaces as
// sentinel.ErrAdminSlotTaken without aborting the enclosing transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, p *Principal) error {
	var barangay sql.NullString
	if p.BarangayCode != "" {
		barangay = sql.NullString{String: string(p.BarangayCode), Valid: true}
	}

	query := `
		INSERT INTO principals (id, external_identity_id, barangay_code, role_name, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if p.RoleName == RoleBarangayAdmin && p.IsActive {
		// The arbiter clause must match the partial index predicate; a slot
		// conflict then inserts nothing instead of raising and poisoning the
		// surrounding transaction.
		query += `
		ON CONFLICT (barangay_code) WHERE role_name = 'BARANGAY_ADMIN' AND is_active DO NOTHING
		`
	}
	query += ` RETURNING id`

	var inserted uuid.UUID
	err := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(p.ID),
		string(p.ExternalIdentityID),
		barangay,
		string(p.RoleName),
		p.IsActive,
		p.CreatedAt,
	).Scan(&inserted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrAdminSlotTaken
		}
		return translatePQError(err, "insert principal")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, pid id.PrincipalID) (*Principal, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(pid))
}

func (s *PostgresStore) FindByExternalIdentity(ctx context.Context, ext id.ExternalIdentityID) (*Principal, error) {
	return s.findOne(ctx, `WHERE external_identity_id = $1`, string(ext))
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*Principal, error) {
	query := `
		SELECT id, external_identity_id, barangay_code, role_name, is_active, created_at, deactivated_at
		FROM principals
	` + where

	row := s.execer(ctx).QueryRowContext(ctx, query, arg)
	p, err := scanPrincipal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, pid id.PrincipalID, now time.Time) (*Principal, error) {
	query := `
		UPDATE principals
		SET is_active = FALSE, deactivated_at = $2
		WHERE id = $1 AND is_active
		RETURNING id, external_identity_id, barangay_code, role_name, is_active, created_at, deactivated_at
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(pid), now)
	p, err := scanPrincipal(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deactivate principal: %w", err)
	}

	// Distinguish missing from already inactive.
	if _, findErr := s.FindByID(ctx, pid); findErr != nil {
		return nil, findErr
	}
	return nil, sentinel.ErrInvalidState
}

func (s *PostgresStore) CountActiveAdmins(ctx context.Context, barangay geo.Code) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM principals
		WHERE barangay_code = $1 AND role_name = $2 AND is_active
	`, string(barangay), string(RoleBarangayAdmin)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active admins: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row rowScanner) (*Principal, error) {
	var (
		p             Principal
		rawID         uuid.UUID
		rawExt        string
		barangay      sql.NullString
		rawRole       string
		deactivatedAt sql.NullTime
	)
	err := row.Scan(&rawID, &rawExt, &barangay, &rawRole, &p.IsActive, &p.CreatedAt, &deactivatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = id.PrincipalID(rawID)
	p.ExternalIdentityID = id.ExternalIdentityID(rawExt)
	if barangay.Valid {
		p.BarangayCode = geo.Code(barangay.String)
	}
	p.RoleName = RoleName(rawRole)
	if deactivatedAt.Valid {
		t := deactivatedAt.Time
		p.DeactivatedAt = &t
	}
	return &p, nil
}

// translatePQError maps unique violations to sentinels by constraint name.
func translatePQError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		switch pqErr.Constraint {
		case constraintExternalID:
			return sentinel.ErrConflict
		case constraintOneActiveAdmin:
			return sentinel.ErrAdminSlotTaken
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// PostgresRoleStore reads the roles reference table.
type PostgresRoleStore struct {
	db *sql.DB
}

func NewPostgresRoleStore(db *sql.DB) *PostgresRoleStore {
	return &PostgresRoleStore{db: db}
}

func (s *PostgresRoleStore) FindByName(ctx context.Context, name RoleName) (*Role, error) {
	var role Role
	var rawName, rawScope string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, scope_level FROM roles WHERE name = $1
	`, string(name)).Scan(&rawName, &rawScope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	role.Name = RoleName(rawName)
	role.Scope = ScopeLevel(rawScope)
	return &role, nil
}
