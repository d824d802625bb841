package models

import (
	"errors"
	"fmt"
)

// Ошибки предметной области. Сервисы оборачивают их через %w,
// обработчики сопоставляют с HTTP-статусами через errors.Is.
var (
	// ErrUnauthorized отсутствует или недействителен bearer-токен.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidPlan план не входит в набор платных планов.
	ErrInvalidPlan = errors.New("invalid plan selected")
	// ErrProviderError платёжный провайдер вернул неуспешный ответ.
	ErrProviderError = errors.New("payment provider error")
	// ErrStoreError ошибка чтения или записи таблицы подписок.
	ErrStoreError = errors.New("subscription store error")
	// ErrMalformedRequest тело запроса не является корректным JSON.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrInvalidSignature подпись вебхука не совпала с секретом.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrNotFound запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrCardLimitReached бесплатный план исчерпал лимит открыток.
	ErrCardLimitReached = errors.New("free plan card limit reached")
	// ErrPremiumTemplate шаблон доступен только на платных планах.
	ErrPremiumTemplate = errors.New("template requires a premium plan")
	// ErrUnknownTemplate шаблона нет в каталоге.
	ErrUnknownTemplate = errors.New("unknown template")
)

// ProviderError неуспешный ответ платёжного провайдера.
type ProviderError struct {
	StatusCode int
	Message    string
}

// Error реализует интерфейс error.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider responded %d: %s", e.StatusCode, e.Message)
}

// Unwrap позволяет сопоставлять ошибку с ErrProviderError.
func (e *ProviderError) Unwrap() error {
	return ErrProviderError
}
