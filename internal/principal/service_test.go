package principal

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"balangay/internal/audit"
	"balangay/internal/geo"
	id "balangay/pkg/domain"
	dErrors "balangay/pkg/domain-errors"
)

const (
	testBarangay = geo.Code("042114014")
	sibling      = geo.Code("042114015")
)

func testCatalog(t *testing.T) *geo.Catalog {
	t.Helper()
	catalog, err := geo.NewCatalog([]geo.Unit{
		{Code: "13", Level: geo.LevelRegion},
		{Code: "0421", Level: geo.LevelProvince, ParentCode: "13"},
		{Code: "042114", Level: geo.LevelCity, ParentCode: "0421"},
		{Code: "042114014", Level: geo.LevelBarangay, ParentCode: "042114"},
		{Code: "042114015", Level: geo.LevelBarangay, ParentCode: "042114"},
	})
	require.NoError(t, err)
	return catalog
}

type ServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	trail   *audit.InMemoryStore
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewInMemory()
	s.trail = audit.NewInMemory()
	s.service = NewService(
		s.store,
		NewInMemoryRoleStore(),
		testCatalog(s.T()),
		WithAudit(audit.NewEmitter(s.trail, nil)),
	)
}

func (s *ServiceSuite) TestFirstSignupBecomesAdmin() {
	ctx := context.Background()

	p, err := s.service.CreatePrincipal(ctx, "idp-user-1", string(testBarangay))
	s.Require().NoError(err)
	s.Equal(RoleBarangayAdmin, p.RoleName)
	s.Equal(testBarangay, p.BarangayCode)
	s.True(p.IsActive)

	events := s.trail.ByAction(audit.ActionRoleAssigned)
	s.Require().Len(events, 1)
	s.Equal(string(RoleBarangayAdmin), events[0].Detail)
	s.Equal(string(testBarangay), events[0].Subject)
}

func (s *ServiceSuite) TestSecondSignupBecomesResident() {
	ctx := context.Background()

	_, err := s.service.CreatePrincipal(ctx, "idp-user-1", string(testBarangay))
	s.Require().NoError(err)

	p, err := s.service.CreatePrincipal(ctx, "idp-user-2", string(testBarangay))
	s.Require().NoError(err)
	s.Equal(RoleResident, p.RoleName)
}

func (s *ServiceSuite) TestAdminSlotsAreIndependentPerBarangay() {
	ctx := context.Background()

	p1, err := s.service.CreatePrincipal(ctx, "idp-user-1", string(testBarangay))
	s.Require().NoError(err)
	p2, err := s.service.CreatePrincipal(ctx, "idp-user-2", string(sibling))
	s.Require().NoError(err)

	s.Equal(RoleBarangayAdmin, p1.RoleName)
	s.Equal(RoleBarangayAdmin, p2.RoleName)
}

func (s *ServiceSuite) TestConcurrentSignupsYieldExactlyOneAdmin() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var admins, residents atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			p, err := s.service.CreatePrincipal(ctx, fmt.Sprintf("idp-user-%d", idx), string(testBarangay))
			if err != nil {
				return
			}
			switch p.RoleName {
			case RoleBarangayAdmin:
				admins.Add(1)
			case RoleResident:
				residents.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), admins.Load(), "exactly one signup should win the admin slot")
	s.Equal(int32(goroutines-1), residents.Load())

	count, err := s.store.CountActiveAdmins(ctx, testBarangay)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *ServiceSuite) TestDuplicateSignupReturnsExistingPrincipal() {
	ctx := context.Background()

	first, err := s.service.CreatePrincipal(ctx, "idp-user-1", string(testBarangay))
	s.Require().NoError(err)

	// Same identity again, even against another barangay: the existing
	// profile comes back unchanged instead of a second row.
	again, err := s.service.CreatePrincipal(ctx, "idp-user-1", string(sibling))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Require().NotNil(again)
	s.Equal(first.ID, again.ID)
	s.Equal(first.RoleName, again.RoleName)
	s.Equal(testBarangay, again.BarangayCode)
}

func (s *ServiceSuite) TestSignupValidation() {
	ctx := context.Background()

	s.Run("unknown geographic code", func() {
		_, err := s.service.CreatePrincipal(ctx, "idp-user-1", "999999999")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("non-barangay code", func() {
		_, err := s.service.CreatePrincipal(ctx, "idp-user-1", "042114")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("empty external identity", func() {
		_, err := s.service.CreatePrincipal(ctx, "", string(testBarangay))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestMissingRoleCatalogIsConfigurationError() {
	svc := NewService(NewInMemory(), NewEmptyRoleStore(), testCatalog(s.T()))

	_, err := svc.CreatePrincipal(context.Background(), "idp-user-1", string(testBarangay))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func (s *ServiceSuite) TestDeactivateFreesAdminSlot() {
	ctx := context.Background()

	admin, err := s.service.CreatePrincipal(ctx, "idp-user-1", string(testBarangay))
	s.Require().NoError(err)
	s.Equal(RoleBarangayAdmin, admin.RoleName)

	deactivated, err := s.service.Deactivate(ctx, admin.ID)
	s.Require().NoError(err)
	s.False(deactivated.IsActive)
	s.NotNil(deactivated.DeactivatedAt)

	// The freed slot goes to the next signup.
	next, err := s.service.CreatePrincipal(ctx, "idp-user-2", string(testBarangay))
	s.Require().NoError(err)
	s.Equal(RoleBarangayAdmin, next.RoleName)

	s.Len(s.trail.ByAction(audit.ActionPrincipalDeactivated), 1)
}

func (s *ServiceSuite) TestDeactivateIsNotRepeatable() {
	ctx := context.Background()

	p, err := s.service.CreatePrincipal(ctx, "idp-user-1", string(testBarangay))
	s.Require().NoError(err)

	_, err = s.service.Deactivate(ctx, p.ID)
	s.Require().NoError(err)

	_, err = s.service.Deactivate(ctx, p.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestGetPrincipal() {
	ctx := context.Background()

	created, err := s.service.CreatePrincipal(ctx, "idp-user-1", string(testBarangay))
	s.Require().NoError(err)

	found, err := s.service.GetPrincipal(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)
	s.Equal(created.ExternalIdentityID, found.ExternalIdentityID)
}

func (s *ServiceSuite) TestGetPrincipalNotFound() {
	_, err := s.service.GetPrincipal(context.Background(), id.NewPrincipalID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
