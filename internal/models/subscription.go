// Package models содержит доменные структуры сервиса: подписку и её машину состояний,
// тарифные планы, события платёжного провайдера, открытки и ошибки предметной области.
package models

import (
	"slices"
	"time"
)

// Plan тарифный план пользователя.
type Plan string

const (
	// PlanFree бесплатный план, выдаётся без оплаты.
	PlanFree Plan = "free"
	// PlanPremium платный план Premium.
	PlanPremium Plan = "premium"
	// PlanFamily платный семейный план.
	PlanFamily Plan = "family"
)

// IsPaid сообщает, является ли план платным.
func (p Plan) IsPaid() bool {
	return p == PlanPremium || p == PlanFamily
}

// Status статус записи подписки.
type Status string

const (
	// StatusPending платёж создан, но ещё не подтверждён провайдером.
	StatusPending Status = "pending"
	// StatusActive подписка оплачена и действует.
	StatusActive Status = "active"
	// StatusCancelled подписка отменена (возврат или вытеснена другой).
	StatusCancelled Status = "cancelled"
	// StatusExpired платёж истёк у провайдера.
	StatusExpired Status = "expired"
)

// transitions описывает допустимые переходы между статусами одной записи.
// Из expired и cancelled выйти нельзя: новая покупка создаёт новую запись.
var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusExpired, StatusCancelled},
	StatusActive:  {StatusCancelled},
}

// CanTransition сообщает, разрешён ли переход из s в to.
func (s Status) CanTransition(to Status) bool {
	return slices.Contains(transitions[s], to)
}

// SourcesFor возвращает статусы, из которых разрешён переход в to.
// Повторная активация уже активной записи допускается отдельно (replay вебхука).
func SourcesFor(to Status) []Status {
	var res []Status
	for _, from := range []Status{StatusPending, StatusActive, StatusCancelled, StatusExpired} {
		if from.CanTransition(to) {
			res = append(res, from)
		}
	}
	if to == StatusActive {
		res = append(res, StatusActive)
	}
	return res
}

// Subscription запись таблицы subscriptions: одна попытка оплаты или действующее право доступа.
// Plan и PriceCents фиксируются при создании и больше не меняются.
type Subscription struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Plan            Plan       `json:"plan"`
	Status          Status     `json:"status"`
	PaymentID       *string    `json:"payment_id"`
	PaymentProvider string     `json:"payment_provider"`
	PriceCents      int        `json:"price_cents"`
	StartsAt        *time.Time `json:"starts_at"`
	ExpiresAt       *time.Time `json:"expires_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Superseded запись отменена новым платежом того же пользователя, а не провайдером.
	// Оплата такого счёта всё ещё может её активировать.
	Superseded bool `json:"-"`
	// PreviousStatus статус до активации, заполняется только запросами активации.
	PreviousStatus Status `json:"-"`
}

// Profile публичный профиль пользователя, ведётся провайдером аутентификации.
type Profile struct {
	UserID   string
	FullName string
	Email    string
}

// CurrentSubscriptionCacheKey ключ кеша текущей подписки пользователя.
func CurrentSubscriptionCacheKey(userID string) string {
	return "subscription:" + userID
}

// ActivationNotice сообщение об активации платного плана для воркера уведомлений.
type ActivationNotice struct {
	SubscriptionID string    `json:"subscription_id"`
	UserID         string    `json:"user_id"`
	Plan           Plan      `json:"plan"`
	ExpiresAt      time.Time `json:"expires_at"`
	Source         string    `json:"source"`
}
