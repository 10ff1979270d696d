//go:build integration

package principal_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"balangay/internal/geo"
	"balangay/internal/principal"
	id "balangay/pkg/domain"
	"balangay/pkg/platform/sentinel"
	"balangay/pkg/testutil/containers"
)

const testBarangay = geo.Code("042114014")

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *principal.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = principal.NewPostgres(s.postgres.DB)

	ctx := context.Background()
	s.Require().NoError(s.postgres.SeedGeoUnit(ctx, "13", "REGION", "", "Region XIII"))
	s.Require().NoError(s.postgres.SeedGeoUnit(ctx, "0421", "PROVINCE", "13", "Cavite"))
	s.Require().NoError(s.postgres.SeedGeoUnit(ctx, "042114", "CITY", "0421", "Silang"))
	s.Require().NoError(s.postgres.SeedGeoUnit(ctx, "042114014", "BARANGAY", "042114", "Lalaan I"))
	s.Require().NoError(s.postgres.SeedGeoUnit(ctx, "042114015", "BARANGAY", "042114", "Lalaan II"))
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order; roles and geo_units are reference data.
	err := s.postgres.TruncateTables(ctx, "household_members", "households", "household_counters", "audit_events", "principals")
	s.Require().NoError(err)
}

func newTestPrincipal(t *testing.T, ext string, role principal.RoleName) *principal.Principal {
	t.Helper()
	barangay := testBarangay
	if role == principal.RoleSuperAdmin {
		barangay = ""
	}
	p, err := principal.New(id.NewPrincipalID(), id.ExternalIdentityID(ext), barangay, role, time.Now().UTC())
	if err != nil {
		t.Fatalf("build principal: %v", err)
	}
	return p
}

// TestConcurrentAdminSlot verifies that concurrent admin inserts for one
// barangay leave exactly one active administrator.
func (s *PostgresStoreSuite) TestConcurrentAdminSlot() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var wins, losses atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			p := newTestPrincipal(s.T(), fmt.Sprintf("race-ext-%d", idx), principal.RoleBarangayAdmin)
			err := s.store.Create(ctx, p)
			if err == nil {
				wins.Add(1)
			} else if errors.Is(err, sentinel.ErrAdminSlotTaken) {
				losses.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one insert should win the admin slot")
	s.Equal(int32(goroutines-1), losses.Load(), "all others should lose the slot")

	count, err := s.store.CountActiveAdmins(ctx, testBarangay)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestAdminSlotsAreIndependent() {
	ctx := context.Background()

	a := newTestPrincipal(s.T(), "ext-a", principal.RoleBarangayAdmin)
	s.Require().NoError(s.store.Create(ctx, a))

	b := newTestPrincipal(s.T(), "ext-b", principal.RoleBarangayAdmin)
	b.BarangayCode = "042114015"
	s.Require().NoError(s.store.Create(ctx, b))
}

func (s *PostgresStoreSuite) TestDuplicateExternalIdentity() {
	ctx := context.Background()

	first := newTestPrincipal(s.T(), "dup-ext", principal.RoleResident)
	s.Require().NoError(s.store.Create(ctx, first))

	second := newTestPrincipal(s.T(), "dup-ext", principal.RoleResident)
	err := s.store.Create(ctx, second)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestResidentsDoNotContendForSlot() {
	ctx := context.Background()

	admin := newTestPrincipal(s.T(), "ext-admin", principal.RoleBarangayAdmin)
	s.Require().NoError(s.store.Create(ctx, admin))

	for i := 0; i < 3; i++ {
		r := newTestPrincipal(s.T(), fmt.Sprintf("ext-res-%d", i), principal.RoleResident)
		s.Require().NoError(s.store.Create(ctx, r))
	}
}

func (s *PostgresStoreSuite) TestDeactivateFreesSlot() {
	ctx := context.Background()

	admin := newTestPrincipal(s.T(), "ext-admin", principal.RoleBarangayAdmin)
	s.Require().NoError(s.store.Create(ctx, admin))

	updated, err := s.store.Deactivate(ctx, admin.ID, time.Now().UTC())
	s.Require().NoError(err)
	s.False(updated.IsActive)
	s.NotNil(updated.DeactivatedAt)

	count, err := s.store.CountActiveAdmins(ctx, testBarangay)
	s.Require().NoError(err)
	s.Equal(0, count)

	// The slot reopens for the next admin.
	next := newTestPrincipal(s.T(), "ext-admin-2", principal.RoleBarangayAdmin)
	s.Require().NoError(s.store.Create(ctx, next))

	// The deactivated row stays behind.
	kept, err := s.store.FindByID(ctx, admin.ID)
	s.Require().NoError(err)
	s.False(kept.IsActive)
}

func (s *PostgresStoreSuite) TestDeactivateErrors() {
	ctx := context.Background()

	p := newTestPrincipal(s.T(), "ext-once", principal.RoleResident)
	s.Require().NoError(s.store.Create(ctx, p))

	_, err := s.store.Deactivate(ctx, p.ID, time.Now().UTC())
	s.Require().NoError(err)

	_, err = s.store.Deactivate(ctx, p.ID, time.Now().UTC())
	s.ErrorIs(err, sentinel.ErrInvalidState)

	_, err = s.store.Deactivate(ctx, id.NewPrincipalID(), time.Now().UTC())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindRoundtrip() {
	ctx := context.Background()

	p := newTestPrincipal(s.T(), "ext-find", principal.RoleResident)
	s.Require().NoError(s.store.Create(ctx, p))

	byID, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ExternalIdentityID, byID.ExternalIdentityID)
	s.Equal(p.BarangayCode, byID.BarangayCode)
	s.Equal(p.RoleName, byID.RoleName)
	s.True(byID.IsActive)

	byExt, err := s.store.FindByExternalIdentity(ctx, "ext-find")
	s.Require().NoError(err)
	s.Equal(p.ID, byExt.ID)

	_, err = s.store.FindByID(ctx, id.NewPrincipalID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSuperAdminHasNoBarangay() {
	ctx := context.Background()

	p := newTestPrincipal(s.T(), "ext-super", principal.RoleSuperAdmin)
	s.Require().NoError(s.store.Create(ctx, p))

	found, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(found.BarangayCode)
}

func (s *PostgresStoreSuite) TestRoleStoreServesSeededCatalog() {
	ctx := context.Background()
	roles := principal.NewPostgresRoleStore(s.postgres.DB)

	for _, name := range []principal.RoleName{
		principal.RoleSuperAdmin,
		principal.RoleBarangayAdmin,
		principal.RoleResident,
	} {
		role, err := roles.FindByName(ctx, name)
		s.Require().NoError(err)
		s.Equal(name, role.Name)
	}

	_, err := roles.FindByName(ctx, "MAYOR")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
