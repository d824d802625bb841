package repository

import (
	"context"

	"github.com/festiva/festiva/internal/models"
)

// GetProfile возвращает профиль пользователя. Пустые поля профиля возвращаются пустыми строками.
func (s *Storage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage.GetProfile"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var fullName, email *string
	err := s.DB.QueryRowContext(ctx,
		`SELECT full_name, email FROM profiles WHERE user_id = $1`, userID).Scan(&fullName, &email)
	if err != nil {
		return nil, notFound(op, err)
	}
	profile := &models.Profile{UserID: userID}
	if fullName != nil {
		profile.FullName = *fullName
	}
	if email != nil {
		profile.Email = *email
	}
	return profile, nil
}
