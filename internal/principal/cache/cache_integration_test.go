//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"balangay/internal/principal"
	"balangay/internal/principal/cache"
	id "balangay/pkg/domain"
	"balangay/pkg/testutil/containers"
)

type ProfileCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.ProfileCache
}

func TestProfileCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProfileCacheSuite))
}

func (s *ProfileCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.cache = cache.New(s.redis.Client, time.Minute)
}

func (s *ProfileCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *ProfileCacheSuite) newProfile() *principal.Principal {
	p, err := principal.New(
		id.NewPrincipalID(),
		"idp-user-1",
		"042114014",
		principal.RoleBarangayAdmin,
		time.Now().UTC().Truncate(time.Second),
	)
	s.Require().NoError(err)
	return p
}

func (s *ProfileCacheSuite) TestSetGetRoundtrip() {
	ctx := context.Background()
	p := s.newProfile()

	s.Require().NoError(s.cache.Set(ctx, p))

	got, err := s.cache.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(p.ID, got.ID)
	s.Equal(p.ExternalIdentityID, got.ExternalIdentityID)
	s.Equal(p.BarangayCode, got.BarangayCode)
	s.Equal(p.RoleName, got.RoleName)
	s.True(got.IsActive)
	s.True(p.CreatedAt.Equal(got.CreatedAt))
}

func (s *ProfileCacheSuite) TestMissReturnsNilNil() {
	got, err := s.cache.Get(context.Background(), id.NewPrincipalID())
	s.NoError(err)
	s.Nil(got)
}

func (s *ProfileCacheSuite) TestInvalidate() {
	ctx := context.Background()
	p := s.newProfile()

	s.Require().NoError(s.cache.Set(ctx, p))
	s.Require().NoError(s.cache.Invalidate(ctx, p.ID))

	got, err := s.cache.Get(ctx, p.ID)
	s.NoError(err)
	s.Nil(got)

	// Invalidating a missing key is not an error.
	s.NoError(s.cache.Invalidate(ctx, p.ID))
}

func (s *ProfileCacheSuite) TestUndecodableEntryIsDropped() {
	ctx := context.Background()
	p := s.newProfile()

	key := "principal:" + p.ID.String()
	s.Require().NoError(s.redis.Client.Set(ctx, key, "not-json", time.Minute).Err())

	got, err := s.cache.Get(ctx, p.ID)
	s.NoError(err)
	s.Nil(got)

	// The bad entry is gone, not just skipped.
	exists, err := s.redis.Client.Exists(ctx, key).Result()
	s.Require().NoError(err)
	s.Equal(int64(0), exists)
}

func (s *ProfileCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	short := cache.New(s.redis.Client, 50*time.Millisecond)
	p := s.newProfile()

	s.Require().NoError(short.Set(ctx, p))
	time.Sleep(100 * time.Millisecond)

	got, err := short.Get(ctx, p.ID)
	s.NoError(err)
	s.Nil(got)
}
