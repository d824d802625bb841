package repository

import (
	"context"
	"fmt"

	"github.com/festiva/festiva/internal/models"
)

// RecordWebhookEvent сохраняет полученный вебхук и результат его обработки.
func (s *Storage) RecordWebhookEvent(ctx context.Context, rec models.WebhookRecord) error {
	const op = "storage.RecordWebhookEvent"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO webhook_events (provider, event, billing_id, kind, payload, outcome)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)`
	_, err := s.DB.ExecContext(ctx, query,
		rec.Provider, rec.Event, rec.BillingID, rec.Kind, string(rec.Payload), rec.Outcome)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
