// Package sender отправляет письма об активации платного плана.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/lib/smtp"
	"github.com/festiva/festiva/internal/models"
)

// ProfileRepository чтение профиля получателя.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// SenderService обрабатывает сообщения очереди уведомлений.
type SenderService struct {
	repo      ProfileRepository
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(repo ProfileRepository, log *slog.Logger, transport smtp.TransportInterface) *SenderService {
	return &SenderService{
		repo:      repo,
		transport: transport,
		log:       log,
	}
}

// SendActivation отправляет письмо об активации подписки.
// Некорректные сообщения и пользователи без e-mail пропускаются без ошибки,
// ошибка возвращается только для повторяемых сбоев.
func (s *SenderService) SendActivation(ctx context.Context, body []byte) error {
	const op = "sender.SendActivation"
	log := s.log.With(sl.Op(op))

	var notice models.ActivationNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		log.Error("failed to unmarshal message body, dropping", sl.Err(err))
		return nil
	}
	log = log.With(slog.String("user_id", notice.UserID), slog.String("subscription_id", notice.SubscriptionID))

	profile, err := s.repo.GetProfile(ctx, notice.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Warn("profile not found, skipping notice")
			return nil
		}
		return fmt.Errorf("%s: failed to get profile: %w", op, err)
	}
	if profile.Email == "" {
		log.Info("profile has no email, skipping notice")
		return nil
	}

	name := profile.FullName
	if name == "" {
		name = strings.Split(profile.Email, "@")[0]
	}
	subject := "Sua assinatura Festiva está ativa"
	bodyText := fmt.Sprintf("Olá, %s!\n\nSeu plano %s foi ativado e vale até %s.\n\nBoas festas!\nEquipe Festiva",
		name, planTitle(notice.Plan), notice.ExpiresAt.Format("02/01/2006"))

	if err := s.sendEmail([]string{profile.Email}, subject, bodyText); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func planTitle(plan models.Plan) string {
	if cfg, err := models.LookupPaidPlan(string(plan)); err == nil {
		return cfg.Name
	}
	return string(plan)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.GetSMTPUser()), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
