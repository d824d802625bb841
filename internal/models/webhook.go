package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// WebhookKind нормализованный вид события провайдера.
type WebhookKind int

const (
	// WebhookIgnored событие не требует изменений состояния.
	WebhookIgnored WebhookKind = iota
	// WebhookMissingBilling в теле нет идентификатора платежа.
	WebhookMissingBilling
	// WebhookPaid платёж подтверждён.
	WebhookPaid
	// WebhookExpired платёж истёк.
	WebhookExpired
	// WebhookRefunded платёж возвращён.
	WebhookRefunded
)

// String возвращает имя вида события для логов и метрик.
func (k WebhookKind) String() string {
	switch k {
	case WebhookMissingBilling:
		return "missing_billing"
	case WebhookPaid:
		return "paid"
	case WebhookExpired:
		return "expired"
	case WebhookRefunded:
		return "refunded"
	default:
		return "ignored"
	}
}

// Названия событий и статусы провайдера.
const (
	EventBillingPaid     = "billing.paid"
	EventBillingExpired  = "billing.expired"
	EventBillingRefunded = "billing.refunded"

	ProviderStatusPaid     = "PAID"
	ProviderStatusExpired  = "EXPIRED"
	ProviderStatusRefunded = "REFUNDED"
)

// WebhookEvent событие провайдера после нормализующего разбора.
type WebhookEvent struct {
	Kind      WebhookKind
	Event     string
	BillingID string
	Status    string
	UserID    string
	Plan      string
}

// jsonObject объект тела вебхука с отложенным разбором полей.
type jsonObject map[string]json.RawMessage

// asObject разбирает raw как объект. Для другой формы возвращает nil.
func asObject(raw json.RawMessage) jsonObject {
	var obj jsonObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

// text приводит скалярное поле к строке. Числа сохраняются без потери точности,
// объекты, массивы и null дают пустую строку.
func (o jsonObject) text(key string) string {
	raw, ok := o[key]
	if !ok {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// ParseWebhookEvent разбирает тело вебхука. Основная форма
// {event, data: {billing: {id, status, metadata}}}, при её отсутствии
// используются плоские поля billing, id, status, metadata.
// Ошибка возвращается только для некорректного JSON: поле неожиданного типа
// считается отсутствующим и не мешает разбору остальных.
func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	payload := asObject(body)
	billing := asObject(payload["billing"])
	if nested := asObject(asObject(payload["data"])["billing"]); nested != nil {
		billing = nested
	}

	ev := WebhookEvent{
		Event:     payload.text("event"),
		BillingID: payload.text("id"),
		Status:    payload.text("status"),
	}
	metadata := asObject(payload["metadata"])
	if billing != nil {
		if id := billing.text("id"); id != "" {
			ev.BillingID = id
		}
		if status := billing.text("status"); status != "" {
			ev.Status = status
		}
		if m := asObject(billing["metadata"]); m != nil {
			metadata = m
		}
	}
	ev.UserID = metadata.text("user_id")
	ev.Plan = metadata.text("plan")
	ev.Kind = classify(ev)
	return ev, nil
}

func classify(ev WebhookEvent) WebhookKind {
	if ev.BillingID == "" {
		return WebhookMissingBilling
	}
	event := strings.ToLower(ev.Event)
	status := strings.ToUpper(ev.Status)
	switch {
	case event == EventBillingPaid || status == ProviderStatusPaid:
		return WebhookPaid
	case event == EventBillingExpired || status == ProviderStatusExpired:
		return WebhookExpired
	case event == EventBillingRefunded || status == ProviderStatusRefunded:
		return WebhookRefunded
	default:
		return WebhookIgnored
	}
}

// WebhookRecord запись журнала полученных вебхуков.
type WebhookRecord struct {
	Provider  string
	Event     string
	BillingID string
	Kind      string
	Payload   []byte
	Outcome   string
}
