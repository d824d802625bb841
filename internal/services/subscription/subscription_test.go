package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/festiva/festiva/internal/cache"
	"github.com/festiva/festiva/internal/config"
	"github.com/festiva/festiva/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) FindLatestActive(ctx context.Context, userID string) (*models.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Version(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CacheMock) SetIfVersion(ctx context.Context, key string, version int64, value any, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, version, value, expiration)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var now = time.Date(2025, 12, 20, 12, 0, 0, 0, time.UTC)

func newService(repo *RepoMock, cache *CacheMock) *Service {
	var c Cache
	if cache != nil {
		c = cache
	}
	svc := New(repo, c, time.Minute, newNoopLogger())
	svc.now = func() time.Time { return now }
	return svc
}

func TestService_Current(t *testing.T) {
	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name      string
		sub       *models.Subscription
		repoErr   error
		wantPlan  models.Plan
		premium   bool
		family    bool
		withSub   bool
		wantError bool
	}{
		{
			name:     "no active row means free",
			repoErr:  models.ErrNotFound,
			wantPlan: models.PlanFree,
		},
		{
			name:     "active free row",
			sub:      &models.Subscription{ID: "s0", Plan: models.PlanFree, Status: models.StatusActive},
			wantPlan: models.PlanFree,
			withSub:  true,
		},
		{
			name:     "active premium",
			sub:      &models.Subscription{ID: "s1", Plan: models.PlanPremium, Status: models.StatusActive, ExpiresAt: &future},
			wantPlan: models.PlanPremium,
			premium:  true,
			withSub:  true,
		},
		{
			name:     "active family is premium too",
			sub:      &models.Subscription{ID: "s2", Plan: models.PlanFamily, Status: models.StatusActive, ExpiresAt: &future},
			wantPlan: models.PlanFamily,
			premium:  true,
			family:   true,
			withSub:  true,
		},
		{
			name:     "lapsed paid row falls back to free",
			sub:      &models.Subscription{ID: "s3", Plan: models.PlanPremium, Status: models.StatusActive, ExpiresAt: &past},
			wantPlan: models.PlanFree,
		},
		{
			name:      "store error",
			repoErr:   errors.New("db down"),
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &RepoMock{}
			cache := &CacheMock{}
			cache.On("Get", mock.Anything, "subscription:user-1", mock.Anything).Return(false, nil).Once()
			cache.On("Version", mock.Anything, "subscription:user-1").Return(int64(3), nil).Once()
			repo.On("FindLatestActive", mock.Anything, "user-1").Return(tt.sub, tt.repoErr).Once()
			if !tt.wantError {
				cache.On("SetIfVersion", mock.Anything, "subscription:user-1", int64(3), mock.Anything, time.Minute).
					Return(true, nil).Once()
			}

			got, err := newService(repo, cache).Current(context.Background(), "user-1")

			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrStoreError)
				cache.AssertNotCalled(t, "SetIfVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlan, got.Plan)
			assert.Equal(t, tt.premium, got.IsPremium)
			assert.Equal(t, tt.family, got.IsFamily)
			assert.Equal(t, tt.withSub, got.Subscription != nil)
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestService_Current_CacheHit(t *testing.T) {
	repo := &RepoMock{}
	cache := &CacheMock{}
	cache.On("Get", mock.Anything, "subscription:user-1", mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(2).(*Entitlement)
			*out = Entitlement{Plan: models.PlanFamily, IsPremium: true, IsFamily: true}
		}).Return(true, nil).Once()

	got, err := newService(repo, cache).Current(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFamily, got.Plan)
	repo.AssertNotCalled(t, "FindLatestActive", mock.Anything, mock.Anything)
}

func TestService_Current_CacheErrorsAreNotFatal(t *testing.T) {
	repo := &RepoMock{}
	cache := &CacheMock{}
	cache.On("Get", mock.Anything, "subscription:user-1", mock.Anything).Return(false, errors.New("redis down")).Once()
	cache.On("Version", mock.Anything, "subscription:user-1").Return(int64(0), nil).Once()
	repo.On("FindLatestActive", mock.Anything, "user-1").Return(nil, models.ErrNotFound).Once()
	cache.On("SetIfVersion", mock.Anything, "subscription:user-1", int64(0), mock.Anything, time.Minute).
		Return(false, errors.New("redis down")).Once()

	got, err := newService(repo, cache).Current(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, got.Plan)
	cache.AssertExpectations(t)
}

func TestService_Current_VersionErrorSkipsWrite(t *testing.T) {
	repo := &RepoMock{}
	cache := &CacheMock{}
	cache.On("Get", mock.Anything, "subscription:user-1", mock.Anything).Return(false, nil).Once()
	cache.On("Version", mock.Anything, "subscription:user-1").Return(int64(0), errors.New("redis down")).Once()
	repo.On("FindLatestActive", mock.Anything, "user-1").Return(nil, models.ErrNotFound).Once()

	got, err := newService(repo, cache).Current(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, got.Plan)
	cache.AssertNotCalled(t, "SetIfVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Current_InvalidatedWhileReading(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCache, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisCache.Close() })

	future := now.Add(24 * time.Hour)
	repo := &RepoMock{}
	// активация с инвалидацией кеша случается между чтением базы и записью в кеш
	repo.On("FindLatestActive", mock.Anything, "user-1").
		Run(func(mock.Arguments) {
			require.NoError(t, redisCache.Invalidate(context.Background(), "subscription:user-1"))
		}).
		Return(nil, models.ErrNotFound).Once()
	repo.On("FindLatestActive", mock.Anything, "user-1").
		Return(&models.Subscription{ID: "s1", Plan: models.PlanPremium, Status: models.StatusActive, ExpiresAt: &future}, nil).Once()

	svc := New(repo, redisCache, time.Minute, newNoopLogger())
	svc.now = func() time.Time { return now }

	got, err := svc.Current(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, got.Plan)
	assert.False(t, mr.Exists("subscription:user-1"), "stale result must not be cached")

	got, err = svc.Current(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, got.Plan)
	assert.True(t, mr.Exists("subscription:user-1"))
	repo.AssertExpectations(t)
}

func TestService_Current_WithoutCache(t *testing.T) {
	repo := &RepoMock{}
	repo.On("FindLatestActive", mock.Anything, "user-1").Return(nil, models.ErrNotFound).Once()

	got, err := newService(repo, nil).Current(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, got.Plan)
}
