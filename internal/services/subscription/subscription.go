// Package subscription определяет текущий план пользователя по таблице подписок
// с кешированием результата в Redis.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/models"
)

// SubscriptionRepository чтение активной подписки.
type SubscriptionRepository interface {
	FindLatestActive(ctx context.Context, userID string) (*models.Subscription, error)
}

// Cache описывает методы для кэширования данных. Запись проходит, только если
// поколение ключа не изменилось с момента Version.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Version(ctx context.Context, key string) (int64, error)
	SetIfVersion(ctx context.Context, key string, version int64, value any, expiration time.Duration) (bool, error)
}

// Entitlement текущий план пользователя.
type Entitlement struct {
	Plan         models.Plan          `json:"plan"`
	IsPremium    bool                 `json:"isPremium"`
	IsFamily     bool                 `json:"isFamily"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

// Service вычисляет текущий план пользователя.
type Service struct {
	repo     SubscriptionRepository
	cache    Cache
	cacheTTL time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// New создает новый экземпляр Service. cache может быть nil.
func New(repo SubscriptionRepository, cache Cache, cacheTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
		now:      time.Now,
	}
}

// Current возвращает план по последней активной записи пользователя.
// Без активной записи или с истёкшим expires_at пользователь на бесплатном плане.
func (s *Service) Current(ctx context.Context, userID string) (*Entitlement, error) {
	const op = "subscription.Current"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))
	cacheKey := models.CurrentSubscriptionCacheKey(userID)

	var (
		version   int64
		cacheable bool
	)
	if s.cache != nil {
		var cached Entitlement
		found, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Warn("failed to read subscription cache", sl.Err(err))
		}
		if found {
			return &cached, nil
		}
		// поколение читается до базы: инвалидация после этого момента отменит запись
		version, err = s.cache.Version(ctx, cacheKey)
		if err != nil {
			log.Warn("failed to read subscription cache version", sl.Err(err))
		} else {
			cacheable = true
		}
	}

	sub, err := s.repo.FindLatestActive(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrStoreError, err)
	}

	res := &Entitlement{Plan: models.PlanFree}
	if sub != nil && !s.lapsed(sub) {
		res = &Entitlement{
			Plan:         sub.Plan,
			IsPremium:    sub.Plan.IsPaid(),
			IsFamily:     sub.Plan == models.PlanFamily,
			Subscription: sub,
		}
	}

	if cacheable {
		stored, err := s.cache.SetIfVersion(ctx, cacheKey, version, res, s.cacheTTL)
		switch {
		case err != nil:
			log.Warn("failed to cache subscription", sl.Err(err))
		case !stored:
			log.Debug("subscription changed while reading, result not cached")
		}
	}
	return res, nil
}

func (s *Service) lapsed(sub *models.Subscription) bool {
	return sub.ExpiresAt != nil && !sub.ExpiresAt.After(s.now())
}
