// Package cards реализует бизнес-логику открыток: создание с учётом ограничений плана,
// список, удаление и публичный просмотр по ссылке.
package cards

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/models"
	"github.com/festiva/festiva/internal/services/subscription"
)

const (
	slugAlphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
	slugRandLength = 9
)

// CardRepository определяет методы хранилища открыток.
type CardRepository interface {
	CreateCard(ctx context.Context, card models.Card) (*models.Card, error)
	CountCards(ctx context.Context, userID string) (int, error)
	ListCards(ctx context.Context, userID string) ([]*models.Card, error)
	RemoveCard(ctx context.Context, userID, id string) error
	ViewPublicCard(ctx context.Context, slug string) (*models.Card, error)
}

// EntitlementProvider возвращает текущий план пользователя.
type EntitlementProvider interface {
	Current(ctx context.Context, userID string) (*subscription.Entitlement, error)
}

// Service сервис открыток.
type Service struct {
	repo          CardRepository
	entitlements  EntitlementProvider
	freeCardLimit int
	log           *slog.Logger
	now           func() time.Time
}

// New создает новый экземпляр Service.
func New(repo CardRepository, entitlements EntitlementProvider, freeCardLimit int, log *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		entitlements:  entitlements,
		freeCardLimit: freeCardLimit,
		log:           log,
		now:           time.Now,
	}
}

// PublicCard открытка для публичной страницы с оставшимся до события временем.
type PublicCard struct {
	*models.Card
	Countdown *models.Countdown `json:"countdown,omitempty"`
}

// Create создает открытку. Бесплатный план ограничен freeCardLimit открытками
// и шаблонами без пометки premium.
func (s *Service) Create(ctx context.Context, userID string, in models.DummyCard) (*models.Card, error) {
	const op = "cards.Create"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	tpl, ok := models.LookupTemplate(in.Template)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnknownTemplate)
	}
	countdown, err := parseCountdownDate(in.CountdownDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrMalformedRequest, err)
	}

	ent, err := s.entitlements.Current(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tpl.IsPremium && !ent.IsPremium {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPremiumTemplate)
	}
	if !ent.IsPremium {
		count, err := s.repo.CountCards(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, models.ErrStoreError, err)
		}
		if count >= s.freeCardLimit {
			return nil, fmt.Errorf("%s: %w", op, models.ErrCardLimitReached)
		}
	}

	slug, err := s.newSlug()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	card := models.Card{
		UserID:        userID,
		Title:         strings.TrimSpace(in.Title),
		Message:       optional(in.Message),
		Template:      tpl.ID,
		RecipientName: optional(in.RecipientName),
		CountdownDate: countdown,
		ShareSlug:     slug,
		IsPublic:      true,
	}
	res, err := s.repo.CreateCard(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrStoreError, err)
	}
	log.Info("card created", slog.String("card_id", res.ID), slog.String("template", res.Template))
	return res, nil
}

// List возвращает открытки пользователя.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Card, error) {
	const op = "cards.List"
	res, err := s.repo.ListCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrStoreError, err)
	}
	return res, nil
}

// Remove удаляет открытку пользователя.
func (s *Service) Remove(ctx context.Context, userID, id string) error {
	const op = "cards.Remove"
	if err := s.repo.RemoveCard(ctx, userID, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: %w: %w", op, models.ErrStoreError, err)
	}
	return nil
}

// PublicView отдает публичную открытку по slug и засчитывает просмотр.
func (s *Service) PublicView(ctx context.Context, slug string) (*PublicCard, error) {
	const op = "cards.PublicView"
	card, err := s.repo.ViewPublicCard(ctx, slug)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrStoreError, err)
	}
	res := &PublicCard{Card: card}
	if card.CountdownDate != nil {
		now := s.now()
		if card.CountdownDate.After(now) {
			cd := models.CountdownUntil(now, *card.CountdownDate)
			res.Countdown = &cd
		}
	}
	return res, nil
}

// newSlug формирует ссылку вида <unix-millis в base36>-<9 случайных символов base36>.
func (s *Service) newSlug() (string, error) {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(s.now().UnixMilli(), 36))
	b.WriteByte('-')
	base := big.NewInt(int64(len(slugAlphabet)))
	for range slugRandLength {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		b.WriteByte(slugAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func parseCountdownDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("invalid countdown date %q", value)
	}
	return &t, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
