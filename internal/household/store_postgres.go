package household

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"balangay/internal/geo"
	id "balangay/pkg/domain"
	"balangay/pkg/platform/sentinel"
	txcontext "balangay/pkg/platform/tx"
)

const pqUniqueViolation = "23505"

// PostgresStore persists households in PostgreSQL. All writes pick up an
// enclosing transaction from context; NextSequence and Insert are meant to
// share one so a failed insert rolls the counter bump back with it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// NextSequence atomically bumps and returns the barangay's counter. The
// upsert takes a row lock, so concurrent callers for the same barangay
// serialize on the counter row while distinct barangays stay parallel.
func (s *PostgresStore) NextSequence(ctx context.Context, barangay geo.Code) (int64, error) {
	var seq int64
	err := s.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO household_counters (barangay_code, last_seq)
		VALUES ($1, 1)
		ON CONFLICT (barangay_code)
		DO UPDATE SET last_seq = household_counters.last_seq + 1
		RETURNING last_seq
	`, string(barangay)).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next household sequence: %w", err)
	}
	return seq, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec *Record) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO households (code, barangay_code, seq_no, head_name, address_line, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		rec.Code,
		string(rec.BarangayCode),
		rec.SeqNo,
		rec.HeadName,
		rec.AddressLine,
		uuid.UUID(rec.CreatedBy),
		rec.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert household: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*Record, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT code, barangay_code, seq_no, head_name, address_line, created_by, created_at
		FROM households
		WHERE code = $1
	`, code)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find household: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByBarangay(ctx context.Context, barangay geo.Code) ([]*Record, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT code, barangay_code, seq_no, head_name, address_line, created_by, created_at
		FROM households
		WHERE barangay_code = $1
		ORDER BY seq_no, code
	`, string(barangay))
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate households: %w", err)
	}
	return records, nil
}

// MigrateLegacy rewrites the barangay's legacy codes to the hierarchical
// format. Imported legacy rows carry seq_no = 0, which doubles as the
// migration predicate, making the batch idempotent. The caller wraps this
// in a transaction; the member FK is deferred so the rename and the
// repoint commit together.
func (s *PostgresStore) MigrateLegacy(ctx context.Context, barangay geo.Code) (MigrationReport, error) {
	report := MigrationReport{BarangayCode: barangay}
	ex := s.execer(ctx)

	if _, ok := txcontext.From(ctx); !ok {
		return report, fmt.Errorf("legacy migration requires a transaction")
	}

	if _, err := ex.ExecContext(ctx, `SET CONSTRAINTS household_members_household_code_fkey DEFERRED`); err != nil {
		return report, fmt.Errorf("defer member fk: %w", err)
	}

	rows, err := ex.QueryContext(ctx, `
		SELECT code FROM households
		WHERE barangay_code = $1 AND seq_no = 0
		ORDER BY created_at, code
		FOR UPDATE
	`, string(barangay))
	if err != nil {
		return report, fmt.Errorf("select legacy households: %w", err)
	}
	legacy, err := collectCodes(rows)
	if err != nil {
		return report, err
	}

	for _, oldCode := range legacy {
		seq, err := s.NextSequence(ctx, barangay)
		if err != nil {
			return report, err
		}
		newCode := FormatCode(barangay, seq)

		if _, err := ex.ExecContext(ctx, `
			UPDATE households SET code = $1, seq_no = $2 WHERE code = $3
		`, newCode, seq, oldCode); err != nil {
			return report, fmt.Errorf("rewrite household code %s: %w", oldCode, err)
		}
		res, err := ex.ExecContext(ctx, `
			UPDATE household_members SET household_code = $1 WHERE household_code = $2
		`, newCode, oldCode)
		if err != nil {
			return report, fmt.Errorf("repoint members of %s: %w", oldCode, err)
		}
		repointed, err := res.RowsAffected()
		if err != nil {
			return report, fmt.Errorf("repoint members of %s: %w", oldCode, err)
		}
		report.Rewritten++
		report.MembersRepointed += int(repointed)
	}

	// Consistency check: after the batch, every code in the barangay must be
	// in the hierarchical format. Checking by format rather than seq_no
	// catches rows that were imported with a bogus sequence number.
	rows, err = ex.QueryContext(ctx, `
		SELECT code FROM households WHERE barangay_code = $1
	`, string(barangay))
	if err != nil {
		return report, fmt.Errorf("verify migration: %w", err)
	}
	all, err := collectCodes(rows)
	if err != nil {
		return report, err
	}
	for _, code := range all {
		if !IsHierarchical(code, barangay) {
			report.RemainingLegacy++
		}
	}
	if report.RemainingLegacy != 0 {
		return report, fmt.Errorf("migration left %d legacy households in %s", report.RemainingLegacy, barangay)
	}
	return report, nil
}

func collectCodes(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan legacy code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy codes: %w", err)
	}
	return codes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec     Record
		rawBy   uuid.UUID
		rawCode string
		rawBrgy string
	)
	err := row.Scan(&rawCode, &rawBrgy, &rec.SeqNo, &rec.HeadName, &rec.AddressLine, &rawBy, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Code = rawCode
	rec.BarangayCode = geo.Code(rawBrgy)
	rec.CreatedBy = id.PrincipalID(rawBy)
	return &rec, nil
}
