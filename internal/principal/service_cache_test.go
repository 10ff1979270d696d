package principal_test

//go:generate mockgen -destination=mocks/mocks.go -package=mocks balangay/internal/principal Store,RoleStore,ProfileCache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"balangay/internal/geo"
	"balangay/internal/principal"
	"balangay/internal/principal/mocks"
	id "balangay/pkg/domain"
)

// CacheBehaviorSuite verifies the read-through contract against mocked
// collaborators: hits skip the store, failures degrade to the store, and
// deactivation invalidates only after the store write succeeds. The memory
// store cannot produce these failure interleavings.
type CacheBehaviorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *mocks.MockStore
	mockCache *mocks.MockProfileCache
	service   *principal.Service
}

func TestCacheBehaviorSuite(t *testing.T) {
	suite.Run(t, new(CacheBehaviorSuite))
}

func (s *CacheBehaviorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.mockCache = mocks.NewMockProfileCache(s.ctrl)

	catalog, err := geo.NewCatalog([]geo.Unit{
		{Code: "13", Level: geo.LevelRegion},
		{Code: "0421", Level: geo.LevelProvince, ParentCode: "13"},
		{Code: "042114", Level: geo.LevelCity, ParentCode: "0421"},
		{Code: "042114014", Level: geo.LevelBarangay, ParentCode: "042114"},
	})
	s.Require().NoError(err)

	s.service = principal.NewService(
		s.mockStore,
		mocks.NewMockRoleStore(s.ctrl),
		catalog,
		principal.WithCache(s.mockCache),
		principal.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *CacheBehaviorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CacheBehaviorSuite) newProfile() *principal.Principal {
	p, err := principal.New(id.NewPrincipalID(), "idp-user-1", "042114014", principal.RoleResident, time.Now())
	s.Require().NoError(err)
	return p
}

func (s *CacheBehaviorSuite) TestHitSkipsStore() {
	ctx := context.Background()
	p := s.newProfile()

	s.mockCache.EXPECT().Get(ctx, p.ID).Return(p, nil)
	// No store expectation: a FindByID call would fail the test.

	got, err := s.service.GetPrincipal(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
}

func (s *CacheBehaviorSuite) TestMissFallsThroughAndPopulates() {
	ctx := context.Background()
	p := s.newProfile()

	s.mockCache.EXPECT().Get(ctx, p.ID).Return(nil, nil)
	s.mockStore.EXPECT().FindByID(ctx, p.ID).Return(p, nil)
	s.mockCache.EXPECT().Set(ctx, p).Return(nil)

	got, err := s.service.GetPrincipal(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
}

func (s *CacheBehaviorSuite) TestReadFailureDegradesToStore() {
	ctx := context.Background()
	p := s.newProfile()

	s.mockCache.EXPECT().Get(ctx, p.ID).Return(nil, errors.New("redis down"))
	s.mockStore.EXPECT().FindByID(ctx, p.ID).Return(p, nil)
	s.mockCache.EXPECT().Set(ctx, p).Return(errors.New("redis down"))

	// Neither cache failure surfaces to the caller.
	got, err := s.service.GetPrincipal(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
}

func (s *CacheBehaviorSuite) TestDeactivateInvalidatesAfterStoreWrite() {
	ctx := context.Background()
	p := s.newProfile()
	p.ApplyDeactivation(time.Now())

	gomock.InOrder(
		s.mockStore.EXPECT().Deactivate(ctx, p.ID, gomock.Any()).Return(p, nil),
		s.mockCache.EXPECT().Invalidate(ctx, p.ID).Return(nil),
	)

	got, err := s.service.Deactivate(ctx, p.ID)
	s.Require().NoError(err)
	s.False(got.IsActive)
}

func (s *CacheBehaviorSuite) TestFailedDeactivateLeavesCacheAlone() {
	ctx := context.Background()
	pid := id.NewPrincipalID()

	s.mockStore.EXPECT().Deactivate(ctx, pid, gomock.Any()).Return(nil, errors.New("store down"))
	// No Invalidate expectation: the cache must not be touched on failure.

	_, err := s.service.Deactivate(ctx, pid)
	s.Error(err)
}

func (s *CacheBehaviorSuite) TestInvalidateFailureIsNonFatal() {
	ctx := context.Background()
	p := s.newProfile()
	p.ApplyDeactivation(time.Now())

	s.mockStore.EXPECT().Deactivate(ctx, p.ID, gomock.Any()).Return(p, nil)
	s.mockCache.EXPECT().Invalidate(ctx, p.ID).Return(errors.New("redis down"))

	got, err := s.service.Deactivate(ctx, p.ID)
	s.Require().NoError(err)
	s.False(got.IsActive)
}
