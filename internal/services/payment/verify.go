package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/models"
	"github.com/festiva/festiva/internal/paymentprovider"
)

// Статусы, которые возвращает проверка оплаты.
const (
	VerifyActive    = "active"
	VerifyPending   = "pending"
	VerifyNoPending = "no_pending"
	VerifyExpired   = "expired"
	VerifyRefunded  = "refunded"
)

// VerifyResult результат проверки оплаты.
type VerifyResult struct {
	Success      bool
	Status       string
	Message      string
	Subscription *models.Subscription
}

// Verify сверяет последнюю pending-запись пользователя со списком счетов провайдера.
// Ошибки хранилища оборачивают ErrStoreError, ошибки провайдера ErrProviderError.
func (s *Service) Verify(ctx context.Context, userID string) (*VerifyResult, error) {
	const op = "payment.Verify"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	res, err := s.verify(ctx, log, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.IncVerifyResult(res.Status)
	log.Info("payment verified", slog.String("status", res.Status))
	return res, nil
}

func (s *Service) verify(ctx context.Context, log *slog.Logger, userID string) (*VerifyResult, error) {
	pending, err := s.repo.FindLatestPending(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		log.Error("failed to fetch pending subscription", sl.Err(err))
		return nil, fmt.Errorf("%w: %w", models.ErrStoreError, err)
	}

	if pending == nil {
		active, err := s.repo.FindLatestActivePaid(ctx, userID)
		switch {
		case err == nil:
			return &VerifyResult{
				Success:      true,
				Status:       VerifyActive,
				Message:      "Subscription already active",
				Subscription: active,
			}, nil
		case errors.Is(err, models.ErrNotFound):
			return &VerifyResult{Status: VerifyNoPending, Message: "No pending payment found"}, nil
		default:
			log.Error("failed to fetch active subscription", sl.Err(err))
			return nil, fmt.Errorf("%w: %w", models.ErrStoreError, err)
		}
	}

	log = log.With(slog.String("subscription_id", pending.ID))
	if pending.PaymentID == nil || *pending.PaymentID == "" {
		log.Warn("pending subscription without payment id")
		return &VerifyResult{Status: VerifyPending, Message: "Payment still processing"}, nil
	}
	paymentID := *pending.PaymentID

	billings, err := s.provider.ListBillings(ctx)
	if err != nil {
		log.Error("failed to list provider billings", sl.Err(err))
		if !errors.Is(err, models.ErrProviderError) {
			return nil, fmt.Errorf("%w: %w", models.ErrProviderError, err)
		}
		return nil, err
	}

	var status string
	found := false
	for _, b := range billings {
		if b.ID == paymentID {
			status = strings.ToUpper(b.Status)
			found = true
			break
		}
	}
	if status != models.ProviderStatusPaid {
		res, err := s.restoreSuperseded(ctx, log, userID, billings)
		if err != nil || res != nil {
			return res, err
		}
	}

	if !found {
		log.Info("billing not found at provider", slog.String("payment_id", paymentID))
		return &VerifyResult{Status: VerifyPending, Message: "Payment still processing"}, nil
	}

	switch status {
	case models.ProviderStatusPaid:
		startsAt := s.now()
		sub, err := s.repo.ActivateByID(ctx, pending.ID, startsAt, startsAt.Add(s.cfg.Term))
		if err != nil {
			log.Error("failed to activate subscription", sl.Err(err))
			return nil, fmt.Errorf("%w: %w", models.ErrStoreError, err)
		}
		s.afterActivation(ctx, log, sub, "verify")
		return &VerifyResult{
			Success:      true,
			Status:       VerifyActive,
			Message:      "Payment confirmed! Subscription activated.",
			Subscription: sub,
		}, nil
	case models.ProviderStatusExpired:
		return s.closePending(ctx, log, pending, models.StatusExpired, VerifyExpired)
	case models.ProviderStatusRefunded:
		return s.closePending(ctx, log, pending, models.StatusCancelled, VerifyRefunded)
	default:
		return &VerifyResult{Status: VerifyPending, Message: "Payment still pending"}, nil
	}
}

// closePending переводит pending-запись в to и сообщает клиенту reported.
func (s *Service) closePending(ctx context.Context, log *slog.Logger, pending *models.Subscription,
	to models.Status, reported string) (*VerifyResult, error) {
	if _, err := s.repo.UpdateStatusByID(ctx, pending.ID, to, models.SourcesFor(to)...); err != nil {
		log.Error("failed to update subscription status", sl.Err(err))
		return nil, fmt.Errorf("%w: %w", models.ErrStoreError, err)
	}
	s.invalidate(ctx, log, pending.UserID)
	return &VerifyResult{Status: reported, Message: "Payment " + reported}, nil
}

// restoreSuperseded активирует запись, отменённую новым платежом, если провайдер
// сообщает, что её счёт всё-таки оплачен. nil без ошибки значит, что таких нет.
func (s *Service) restoreSuperseded(ctx context.Context, log *slog.Logger, userID string,
	billings []paymentprovider.Billing) (*VerifyResult, error) {
	superseded, err := s.repo.FindSuperseded(ctx, userID)
	if err != nil {
		log.Error("failed to fetch superseded subscriptions", sl.Err(err))
		return nil, fmt.Errorf("%w: %w", models.ErrStoreError, err)
	}
	if len(superseded) == 0 {
		return nil, nil
	}

	paid := make(map[string]bool, len(billings))
	for _, b := range billings {
		if strings.ToUpper(b.Status) == models.ProviderStatusPaid {
			paid[b.ID] = true
		}
	}

	for _, row := range superseded {
		if row.PaymentID == nil || !paid[*row.PaymentID] {
			continue
		}
		startsAt := s.now()
		sub, err := s.repo.ActivateByPaymentID(ctx, *row.PaymentID, startsAt, startsAt.Add(s.cfg.Term))
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			log.Error("failed to activate superseded subscription", sl.Err(err))
			return nil, fmt.Errorf("%w: %w", models.ErrStoreError, err)
		}
		rowLog := log.With(slog.String("subscription_id", sub.ID))
		if sub.PreviousStatus == models.StatusCancelled {
			s.supersedeOthers(ctx, rowLog, sub)
		}
		s.afterActivation(ctx, rowLog, sub, "verify")
		return &VerifyResult{
			Success:      true,
			Status:       VerifyActive,
			Message:      "Payment confirmed! Subscription activated.",
			Subscription: sub,
		}, nil
	}
	return nil, nil
}
