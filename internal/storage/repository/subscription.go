package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/festiva/festiva/internal/models"
)

const subscriptionColumns = `id, user_id, plan, status, payment_id, payment_provider,
	price_cents, starts_at, expires_at, created_at, updated_at, superseded`

// scanSubscription читает subscriptionColumns и затем колонки extra, если запрос их возвращает.
func scanSubscription(row rowScanner, extra ...any) (*models.Subscription, error) {
	var (
		sub      models.Subscription
		provider *string
	)
	dest := []any{&sub.ID, &sub.UserID, &sub.Plan, &sub.Status, &sub.PaymentID, &provider,
		&sub.PriceCents, &sub.StartsAt, &sub.ExpiresAt, &sub.CreatedAt, &sub.UpdatedAt, &sub.Superseded}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if provider != nil {
		sub.PaymentProvider = *provider
	}
	return &sub, nil
}

func statusArgs(statuses []models.Status) []string {
	res := make([]string, 0, len(statuses))
	for _, s := range statuses {
		res = append(res, string(s))
	}
	return res
}

// CreateSubscription вставляет новую запись подписки и возвращает её с присвоенным id.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	const op = "storage.CreateSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO subscriptions (user_id, plan, status, payment_id, payment_provider,
		price_cents, starts_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + subscriptionColumns
	row := s.DB.QueryRowContext(ctx, query,
		sub.UserID, sub.Plan, sub.Status, sub.PaymentID, sub.PaymentProvider,
		sub.PriceCents, sub.StartsAt, sub.ExpiresAt)
	res, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// FindLatestPending возвращает самую свежую pending-запись пользователя.
func (s *Storage) FindLatestPending(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.FindLatestPending"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE user_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1`
	res, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, notFound(op, err)
	}
	return res, nil
}

// FindLatestActivePaid возвращает самую свежую активную запись платного плана.
func (s *Storage) FindLatestActivePaid(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.FindLatestActivePaid"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE user_id = $1 AND status = 'active' AND plan <> 'free'
		ORDER BY created_at DESC
		LIMIT 1`
	res, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, notFound(op, err)
	}
	return res, nil
}

// FindLatestActive возвращает самую свежую активную запись любого плана.
func (s *Storage) FindLatestActive(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.FindLatestActive"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1`
	res, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, notFound(op, err)
	}
	return res, nil
}

// FindByPaymentID ищет запись по идентификатору платежа провайдера.
func (s *Storage) FindByPaymentID(ctx context.Context, paymentID string) (*models.Subscription, error) {
	const op = "storage.FindByPaymentID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE payment_id = $1`
	res, err := scanSubscription(s.DB.QueryRowContext(ctx, query, paymentID))
	if err != nil {
		return nil, notFound(op, err)
	}
	return res, nil
}

// ActivateByPaymentID переводит запись с данным payment_id в active.
// Повторная активация уже активной записи обновляет срок действия. Запись,
// отменённую новым платежом пользователя (superseded), оплата тоже активирует.
// PreviousStatus результата содержит статус до обновления.
// Если ни одна запись не подошла, возвращается ErrNotFound.
func (s *Storage) ActivateByPaymentID(ctx context.Context, paymentID string, startsAt, expiresAt time.Time) (*models.Subscription, error) {
	const op = "storage.ActivateByPaymentID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE subscriptions
		SET status = 'active', starts_at = $2, expires_at = $3, superseded = false, updated_at = NOW()
		FROM (
			SELECT id AS prev_id, status AS prev_status
			FROM subscriptions
			WHERE payment_id = $1
			FOR UPDATE
		) prev
		WHERE id = prev.prev_id
			AND (status = ANY($4) OR (status = 'cancelled' AND superseded))
		RETURNING ` + subscriptionColumns + `, prev.prev_status`
	var prev models.Status
	res, err := scanSubscription(s.DB.QueryRowContext(ctx, query, paymentID, startsAt, expiresAt,
		statusArgs(models.SourcesFor(models.StatusActive))), &prev)
	if err != nil {
		return nil, notFound(op, err)
	}
	res.PreviousStatus = prev
	return res, nil
}

// ActivateLatestPending активирует самую свежую pending-запись пользователя
// и записывает в неё payment_id, если он не был сохранён при создании.
func (s *Storage) ActivateLatestPending(ctx context.Context, userID, paymentID string, startsAt, expiresAt time.Time) (*models.Subscription, error) {
	const op = "storage.ActivateLatestPending"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE subscriptions
		SET status = 'active', starts_at = $3, expires_at = $4, updated_at = NOW(),
			payment_id = COALESCE(payment_id, $2)
		WHERE id = (
			SELECT id FROM subscriptions
			WHERE user_id = $1 AND status = 'pending'
			ORDER BY created_at DESC
			LIMIT 1
		) AND status = 'pending'
		RETURNING ` + subscriptionColumns
	res, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID, paymentID, startsAt, expiresAt))
	if err != nil {
		return nil, notFound(op, err)
	}
	res.PreviousStatus = models.StatusPending
	return res, nil
}

// ActivateByID активирует запись по её id. Как и ActivateByPaymentID,
// допускает повторную активацию, если вебхук успел активировать запись раньше.
func (s *Storage) ActivateByID(ctx context.Context, id string, startsAt, expiresAt time.Time) (*models.Subscription, error) {
	const op = "storage.ActivateByID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE subscriptions
		SET status = 'active', starts_at = $2, expires_at = $3, updated_at = NOW()
		FROM (
			SELECT id AS prev_id, status AS prev_status
			FROM subscriptions
			WHERE id = $1
			FOR UPDATE
		) prev
		WHERE id = prev.prev_id AND status = ANY($4)
		RETURNING ` + subscriptionColumns + `, prev.prev_status`
	var prev models.Status
	res, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id, startsAt, expiresAt,
		statusArgs(models.SourcesFor(models.StatusActive))), &prev)
	if err != nil {
		return nil, notFound(op, err)
	}
	res.PreviousStatus = prev
	return res, nil
}

// UpdateStatusByPaymentID переводит запись с данным payment_id в статус to,
// если её текущий статус входит в from. Возвращает число изменённых строк.
func (s *Storage) UpdateStatusByPaymentID(ctx context.Context, paymentID string, to models.Status, from ...models.Status) (int64, error) {
	const op = "storage.UpdateStatusByPaymentID"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `UPDATE subscriptions SET status = $2, updated_at = NOW()
		WHERE payment_id = $1 AND status = ANY($3)`
	res, err := s.DB.ExecContext(ctx, query, paymentID, to, statusArgs(from))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// UpdateStatusByID переводит запись в статус to, если её текущий статус входит в from.
func (s *Storage) UpdateStatusByID(ctx context.Context, id string, to models.Status, from ...models.Status) (int64, error) {
	const op = "storage.UpdateStatusByID"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `UPDATE subscriptions SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)`
	res, err := s.DB.ExecContext(ctx, query, id, to, statusArgs(from))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// CancelActiveFree отменяет активные записи бесплатного плана пользователя.
func (s *Storage) CancelActiveFree(ctx context.Context, userID string) (int64, error) {
	const op = "storage.CancelActiveFree"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `UPDATE subscriptions SET status = 'cancelled', updated_at = NOW()
		WHERE user_id = $1 AND plan = 'free' AND status = 'active'`
	res, err := s.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// CancelPendingExcept отменяет все pending-записи пользователя, кроме keepID,
// и помечает их как superseded.
func (s *Storage) CancelPendingExcept(ctx context.Context, userID, keepID string) (int64, error) {
	const op = "storage.CancelPendingExcept"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `UPDATE subscriptions SET status = 'cancelled', superseded = true, updated_at = NOW()
		WHERE user_id = $1 AND status = 'pending' AND id <> $2`
	res, err := s.DB.ExecContext(ctx, query, userID, keepID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// FindSuperseded возвращает записи пользователя, отменённые новым платежом,
// у которых есть payment_id. Сначала самые свежие.
func (s *Storage) FindSuperseded(ctx context.Context, userID string) ([]*models.Subscription, error) {
	const op = "storage.FindSuperseded"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE user_id = $1 AND status = 'cancelled' AND superseded AND payment_id IS NOT NULL
		ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}
