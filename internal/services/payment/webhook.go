package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/models"
)

// Результаты обработки вебхука, попадают в журнал webhook_events.
const (
	OutcomeActivated      = "activated"
	OutcomeExpired        = "expired"
	OutcomeCancelled      = "cancelled"
	OutcomeNoMatch        = "no_match"
	OutcomeRevived        = "revived"
	OutcomeTerminal       = "terminal"
	OutcomeIgnored        = "ignored"
	OutcomeMissingBilling = "missing_billing"
	OutcomeStoreError     = "store_error"
)

// WebhookResult подтверждение приёма вебхука.
type WebhookResult struct {
	Event     string
	BillingID string
	Kind      models.WebhookKind
	Outcome   string
}

// HandleWebhook применяет событие провайдера к таблице подписок.
// Ошибка возвращается только для тела, которое не является JSON: отсутствие
// подходящей записи и ошибки хранилища логируются и подтверждаются.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) (*WebhookResult, error) {
	const op = "payment.HandleWebhook"

	ev, err := models.ParseWebhookEvent(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log := s.log.With(
		sl.Op(op),
		slog.String("event", ev.Event),
		slog.String("billing_id", ev.BillingID),
		slog.String("kind", ev.Kind.String()),
	)
	s.metrics.IncWebhookEvent(ev.Kind.String())

	var outcome string
	switch ev.Kind {
	case models.WebhookMissingBilling:
		log.Warn("webhook without billing id")
		outcome = OutcomeMissingBilling
	case models.WebhookIgnored:
		log.Info("webhook event ignored", slog.String("status", ev.Status))
		outcome = OutcomeIgnored
	case models.WebhookPaid:
		outcome = s.applyPaid(ctx, log, ev)
	case models.WebhookExpired:
		outcome = s.applyStatus(ctx, log, ev, models.StatusExpired, OutcomeExpired)
	case models.WebhookRefunded:
		outcome = s.applyStatus(ctx, log, ev, models.StatusCancelled, OutcomeCancelled)
	default:
		log.Error("unhandled webhook kind")
		outcome = OutcomeIgnored
	}

	err = s.repo.RecordWebhookEvent(ctx, models.WebhookRecord{
		Provider:  s.cfg.ProviderName,
		Event:     ev.Event,
		BillingID: ev.BillingID,
		Kind:      ev.Kind.String(),
		Payload:   body,
		Outcome:   outcome,
	})
	if err != nil {
		log.Error("failed to record webhook event", sl.Err(err))
	}

	log.Info("webhook processed", slog.String("outcome", outcome))
	return &WebhookResult{
		Event:     ev.Event,
		BillingID: ev.BillingID,
		Kind:      ev.Kind,
		Outcome:   outcome,
	}, nil
}

// applyPaid активирует запись по payment_id, в том числе отменённую новым платежом
// пользователя. Если такой записи нет, активируется последняя pending-запись
// пользователя из metadata с записью payment_id.
func (s *Service) applyPaid(ctx context.Context, log *slog.Logger, ev models.WebhookEvent) string {
	startsAt := s.now()
	expiresAt := startsAt.Add(s.cfg.Term)

	sub, err := s.repo.ActivateByPaymentID(ctx, ev.BillingID, startsAt, expiresAt)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		log.Error("failed to activate subscription", sl.Err(err))
		return OutcomeStoreError
	}

	if err != nil {
		existing, ferr := s.repo.FindByPaymentID(ctx, ev.BillingID)
		switch {
		case ferr == nil:
			log.Warn("paid event for subscription in terminal status",
				slog.String("subscription_id", existing.ID),
				slog.String("status", string(existing.Status)))
			return OutcomeTerminal
		case !errors.Is(ferr, models.ErrNotFound):
			log.Error("failed to look up subscription by payment id", sl.Err(ferr))
			return OutcomeStoreError
		}

		if ev.UserID == "" {
			log.Warn("no subscription for paid billing and no user in metadata")
			return OutcomeNoMatch
		}
		sub, err = s.repo.ActivateLatestPending(ctx, ev.UserID, ev.BillingID, startsAt, expiresAt)
		if errors.Is(err, models.ErrNotFound) {
			log.Warn("no pending subscription to activate", slog.String("user_id", ev.UserID))
			return OutcomeNoMatch
		}
		if err != nil {
			log.Error("failed to activate latest pending subscription", sl.Err(err))
			return OutcomeStoreError
		}
		log.Info("activated latest pending subscription by user", slog.String("user_id", ev.UserID))
	}

	log = log.With(slog.String("subscription_id", sub.ID), slog.String("user_id", sub.UserID))
	outcome := OutcomeActivated
	if sub.PreviousStatus == models.StatusCancelled {
		s.supersedeOthers(ctx, log, sub)
		outcome = OutcomeRevived
	}
	s.afterActivation(ctx, log, sub, "webhook")
	log.Info("subscription activated")
	return outcome
}

// applyStatus переводит запись с payment_id в статус to из разрешённых исходных статусов.
func (s *Service) applyStatus(ctx context.Context, log *slog.Logger, ev models.WebhookEvent, to models.Status, outcome string) string {
	n, err := s.repo.UpdateStatusByPaymentID(ctx, ev.BillingID, to, models.SourcesFor(to)...)
	if err != nil {
		log.Error("failed to update subscription status", sl.Err(err))
		return OutcomeStoreError
	}
	if n == 0 {
		log.Warn("no subscription in a status that allows the transition", slog.String("to", string(to)))
		return OutcomeNoMatch
	}

	userID := ev.UserID
	if userID == "" {
		if sub, err := s.repo.FindByPaymentID(ctx, ev.BillingID); err == nil {
			userID = sub.UserID
		}
	}
	s.invalidate(ctx, log, userID)
	return outcome
}
