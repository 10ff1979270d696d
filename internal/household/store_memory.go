package household

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"balangay/internal/geo"
	"balangay/pkg/platform/sentinel"
)

// InMemoryStore mirrors the Postgres store under one mutex: counter bumps,
// inserts, and the migration batch each hold the lock once.
type InMemoryStore struct {
	mu       sync.Mutex
	byCode   map[string]*Record
	counters map[geo.Code]int64
	// members maps household code -> principal IDs, standing in for the
	// household_members table during migration tests.
	members map[string][]string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byCode:   make(map[string]*Record),
		counters: make(map[geo.Code]int64),
		members:  make(map[string][]string),
	}
}

func (s *InMemoryStore) NextSequence(_ context.Context, barangay geo.Code) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[barangay]++
	return s.counters[barangay], nil
}

func (s *InMemoryStore) Insert(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byCode[rec.Code]; exists {
		return sentinel.ErrConflict
	}
	cp := *rec
	s.byCode[rec.Code] = &cp
	return nil
}

func (s *InMemoryStore) FindByCode(_ context.Context, code string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byCode[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemoryStore) ListByBarangay(_ context.Context, barangay geo.Code) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []*Record
	for _, rec := range s.byCode {
		if rec.BarangayCode == barangay {
			cp := *rec
			records = append(records, &cp)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].SeqNo != records[j].SeqNo {
			return records[i].SeqNo < records[j].SeqNo
		}
		return records[i].Code < records[j].Code
	})
	return records, nil
}

// AddMember links a principal to a household, for migration tests.
func (s *InMemoryStore) AddMember(code, principalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[code] = append(s.members[code], principalID)
}

// Members returns the principal IDs linked to a household code.
func (s *InMemoryStore) Members(code string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.members[code]))
	copy(out, s.members[code])
	return out
}

func (s *InMemoryStore) MigrateLegacy(_ context.Context, barangay geo.Code) (MigrationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := MigrationReport{BarangayCode: barangay}

	// Deterministic order: oldest first, code as tiebreak, matching the
	// Postgres batch.
	var legacy []*Record
	for _, rec := range s.byCode {
		if rec.BarangayCode == barangay && rec.SeqNo == 0 {
			legacy = append(legacy, rec)
		}
	}
	sort.Slice(legacy, func(i, j int) bool {
		if !legacy[i].CreatedAt.Equal(legacy[j].CreatedAt) {
			return legacy[i].CreatedAt.Before(legacy[j].CreatedAt)
		}
		return legacy[i].Code < legacy[j].Code
	})

	for _, rec := range legacy {
		s.counters[barangay]++
		seq := s.counters[barangay]
		oldCode := rec.Code
		newCode := FormatCode(barangay, seq)

		delete(s.byCode, oldCode)
		rec.Code = newCode
		rec.SeqNo = seq
		s.byCode[newCode] = rec

		if linked, ok := s.members[oldCode]; ok {
			s.members[newCode] = linked
			delete(s.members, oldCode)
			report.MembersRepointed += len(linked)
		}
		report.Rewritten++
	}

	// Mirror the Postgres verification: every surviving code must be in the
	// hierarchical format, whatever its seq_no claims.
	for code, rec := range s.byCode {
		if rec.BarangayCode == barangay && !IsHierarchical(code, barangay) {
			report.RemainingLegacy++
		}
	}
	if report.RemainingLegacy != 0 {
		return report, fmt.Errorf("migration left %d legacy households in %s", report.RemainingLegacy, barangay)
	}
	return report, nil
}
