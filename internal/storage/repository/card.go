package repository

import (
	"context"
	"fmt"

	"github.com/festiva/festiva/internal/models"
)

const cardColumns = `id, user_id, title, message, template, recipient_name,
	countdown_date, share_slug, is_public, views, created_at`

func scanCard(row rowScanner) (*models.Card, error) {
	var card models.Card
	err := row.Scan(&card.ID, &card.UserID, &card.Title, &card.Message, &card.Template,
		&card.RecipientName, &card.CountdownDate, &card.ShareSlug, &card.IsPublic,
		&card.Views, &card.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// CreateCard сохраняет открытку пользователя.
func (s *Storage) CreateCard(ctx context.Context, card models.Card) (*models.Card, error) {
	const op = "storage.CreateCard"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO cards (user_id, title, message, template, recipient_name,
		countdown_date, share_slug, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + cardColumns
	row := s.DB.QueryRowContext(ctx, query, card.UserID, card.Title, card.Message, card.Template,
		card.RecipientName, card.CountdownDate, card.ShareSlug, card.IsPublic)
	res, err := scanCard(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// CountCards возвращает количество открыток пользователя.
func (s *Storage) CountCards(ctx context.Context, userID string) (int, error) {
	const op = "storage.CountCards"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ListCards возвращает открытки пользователя, новые первыми.
func (s *Storage) ListCards(ctx context.Context, userID string) ([]*models.Card, error) {
	const op = "storage.ListCards"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RemoveCard удаляет открытку, если она принадлежит пользователю.
func (s *Storage) RemoveCard(ctx context.Context, userID, id string) error {
	const op = "storage.RemoveCard"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM cards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ViewPublicCard находит публичную открытку по slug и увеличивает счётчик просмотров.
func (s *Storage) ViewPublicCard(ctx context.Context, slug string) (*models.Card, error) {
	const op = "storage.ViewPublicCard"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE cards SET views = views + 1
		WHERE share_slug = $1 AND is_public = true
		RETURNING ` + cardColumns
	res, err := scanCard(s.DB.QueryRowContext(ctx, query, slug))
	if err != nil {
		return nil, notFound(op, err)
	}
	return res, nil
}
