// Package payment сверяет таблицу подписок с платёжным провайдером:
// создание счёта, обработка вебхуков и проверка оплаты по запросу клиента.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/models"
	"github.com/festiva/festiva/internal/paymentprovider"
)

// SubscriptionRepository хранилище подписок, профилей и журнала вебхуков.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	FindLatestPending(ctx context.Context, userID string) (*models.Subscription, error)
	FindLatestActivePaid(ctx context.Context, userID string) (*models.Subscription, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Subscription, error)
	ActivateByPaymentID(ctx context.Context, paymentID string, startsAt, expiresAt time.Time) (*models.Subscription, error)
	ActivateLatestPending(ctx context.Context, userID, paymentID string, startsAt, expiresAt time.Time) (*models.Subscription, error)
	ActivateByID(ctx context.Context, id string, startsAt, expiresAt time.Time) (*models.Subscription, error)
	UpdateStatusByPaymentID(ctx context.Context, paymentID string, to models.Status, from ...models.Status) (int64, error)
	UpdateStatusByID(ctx context.Context, id string, to models.Status, from ...models.Status) (int64, error)
	CancelActiveFree(ctx context.Context, userID string) (int64, error)
	CancelPendingExcept(ctx context.Context, userID, keepID string) (int64, error)
	FindSuperseded(ctx context.Context, userID string) ([]*models.Subscription, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	RecordWebhookEvent(ctx context.Context, rec models.WebhookRecord) error
}

// ProviderClient API платёжного провайдера.
type ProviderClient interface {
	CreateBilling(ctx context.Context, req paymentprovider.CreateBillingRequest) (*paymentprovider.Billing, error)
	ListBillings(ctx context.Context) ([]paymentprovider.Billing, error)
}

// Cache кеш текущей подписки.
type Cache interface {
	Invalidate(ctx context.Context, key string) error
}

// Publisher отправляет уведомления об активации.
type Publisher interface {
	PublishActivation(ctx context.Context, notice models.ActivationNotice) error
}

// Metrics счётчики сверки.
type Metrics interface {
	IncPaymentCreated(plan string)
	IncWebhookEvent(kind string)
	IncActivation(source string)
	IncVerifyResult(status string)
}

// Config параметры сервиса.
type Config struct {
	ProviderName string
	Term         time.Duration
}

// Service сервис сверки платежей.
type Service struct {
	repo      SubscriptionRepository
	provider  ProviderClient
	cache     Cache
	publisher Publisher
	metrics   Metrics
	log       *slog.Logger
	cfg       Config
	now       func() time.Time
}

// New создаёт сервис. cache и publisher могут быть nil, тогда инвалидация
// кеша и уведомления не выполняются.
func New(log *slog.Logger, cfg Config, repo SubscriptionRepository, provider ProviderClient,
	cache Cache, publisher Publisher, metrics Metrics) *Service {
	return &Service{
		repo:      repo,
		provider:  provider,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// InitiateRequest данные для создания платежа.
type InitiateRequest struct {
	UserID    string
	Email     string
	Phone     string
	FullName  string // full_name из токена
	Plan      string
	ReturnURL string
	Origin    string
}

// InitiateResult ссылка на оплату и идентификатор счёта.
type InitiateResult struct {
	PaymentURL string
	PaymentID  string
}

// Initiate создаёт счёт у провайдера и pending-запись подписки.
// Ошибка вставки записи логируется, но не отменяет уже созданный счёт.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	const op = "payment.Initiate"
	log := s.log.With(sl.Op(op), slog.String("user_id", req.UserID), slog.String("plan", req.Plan))

	plan, err := models.LookupPaidPlan(req.Plan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = strings.TrimRight(req.Origin, "/") + "/dashboard"
	}

	billing, err := s.provider.CreateBilling(ctx, paymentprovider.CreateBillingRequest{
		Frequency: paymentprovider.FrequencyOneTime,
		Methods:   []string{paymentprovider.MethodPix},
		Products: []paymentprovider.Product{{
			ExternalID:  string(plan.Plan) + "-" + req.UserID,
			Name:        plan.Name,
			Description: plan.Description,
			Quantity:    1,
			Price:       plan.PriceCents,
		}},
		ReturnURL:     returnURL,
		CompletionURL: returnURL,
		Customer: paymentprovider.Customer{
			Name:      s.customerName(ctx, log, req),
			Email:     req.Email,
			Cellphone: req.Phone,
		},
		Metadata: paymentprovider.BillingMetadata{UserID: req.UserID, Plan: string(plan.Plan)},
	})
	if err != nil {
		log.Error("provider rejected billing", sl.Err(err))
		if !errors.Is(err, models.ErrProviderError) {
			return nil, fmt.Errorf("%s: %w: %w", op, models.ErrProviderError, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.IncPaymentCreated(string(plan.Plan))
	log = log.With(slog.String("payment_id", billing.ID))

	paymentID := billing.ID
	sub, err := s.repo.CreateSubscription(ctx, models.Subscription{
		UserID:          req.UserID,
		Plan:            plan.Plan,
		Status:          models.StatusPending,
		PaymentID:       &paymentID,
		PaymentProvider: s.cfg.ProviderName,
		PriceCents:      plan.PriceCents,
	})
	if err != nil {
		log.Error("failed to insert pending subscription, billing left without row", sl.Err(err))
	} else {
		n, err := s.repo.CancelPendingExcept(ctx, req.UserID, sub.ID)
		if err != nil {
			log.Error("failed to cancel superseded pending subscriptions", sl.Err(err))
		} else if n > 0 {
			log.Info("superseded pending subscriptions cancelled", slog.Int64("count", n))
		}
	}

	log.Info("payment initiated")
	return &InitiateResult{PaymentURL: billing.URL, PaymentID: billing.ID}, nil
}

// customerName выбирает имя покупателя: профиль, имя из токена, часть email до @, "Cliente".
func (s *Service) customerName(ctx context.Context, log *slog.Logger, req InitiateRequest) string {
	profile, err := s.repo.GetProfile(ctx, req.UserID)
	switch {
	case err == nil && profile.FullName != "":
		return profile.FullName
	case err != nil && !errors.Is(err, models.ErrNotFound):
		log.Warn("failed to load profile", sl.Err(err))
	}
	if req.FullName != "" {
		return req.FullName
	}
	if local, _, ok := strings.Cut(req.Email, "@"); ok && local != "" {
		return local
	}
	return "Cliente"
}

// supersedeOthers отменяет остальные pending-записи пользователя после того,
// как оплата активировала ранее отменённую запись.
func (s *Service) supersedeOthers(ctx context.Context, log *slog.Logger, sub *models.Subscription) {
	log.Info("superseded billing paid, subscription restored")
	n, err := s.repo.CancelPendingExcept(ctx, sub.UserID, sub.ID)
	if err != nil {
		log.Error("failed to cancel newer pending subscriptions", sl.Err(err))
		return
	}
	if n > 0 {
		log.Info("newer pending subscriptions cancelled", slog.Int64("count", n))
	}
}

// afterActivation общие шаги после активации платного плана: отмена бесплатного плана,
// сброс кеша и уведомление. Уведомление и метрика только для записи, которая
// не была активной до этого. Ошибки только логируются.
func (s *Service) afterActivation(ctx context.Context, log *slog.Logger, sub *models.Subscription, source string) {
	if n, err := s.repo.CancelActiveFree(ctx, sub.UserID); err != nil {
		log.Error("failed to cancel free subscription", sl.Err(err))
	} else if n > 0 {
		log.Info("free subscription cancelled", slog.Int64("count", n))
	}
	s.invalidate(ctx, log, sub.UserID)

	if sub.PreviousStatus == models.StatusActive {
		log.Debug("subscription was already active, notice skipped")
		return
	}
	s.metrics.IncActivation(source)
	if s.publisher == nil {
		return
	}
	notice := models.ActivationNotice{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Plan:           sub.Plan,
		Source:         source,
	}
	if sub.ExpiresAt != nil {
		notice.ExpiresAt = *sub.ExpiresAt
	}
	if err := s.publisher.PublishActivation(ctx, notice); err != nil {
		log.Error("failed to publish activation notice", sl.Err(err))
	}
}

func (s *Service) invalidate(ctx context.Context, log *slog.Logger, userID string) {
	if s.cache == nil || userID == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, models.CurrentSubscriptionCacheKey(userID)); err != nil {
		log.Warn("failed to invalidate subscription cache", sl.Err(err))
	}
}
