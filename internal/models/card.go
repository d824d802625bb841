package models

import "time"

// Card поздравительная открытка пользователя.
type Card struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Title         string     `json:"title"`
	Message       *string    `json:"message"`
	Template      string     `json:"template"`
	RecipientName *string    `json:"recipient_name"`
	CountdownDate *time.Time `json:"countdown_date"`
	ShareSlug     string     `json:"share_slug"`
	IsPublic      bool       `json:"is_public"`
	Views         int        `json:"views"`
	CreatedAt     time.Time  `json:"created_at"`
}

// DummyCard используется для приёма открытки из JSON-запроса до валидации.
// Дата обратного отсчёта приходит строкой в RFC 3339 или 2006-01-02.
type DummyCard struct {
	Title         string `json:"title" validate:"required,max=200"`
	Message       string `json:"message" validate:"max=2000"`
	RecipientName string `json:"recipient_name" validate:"max=200"`
	CountdownDate string `json:"countdown_date"`
	Template      string `json:"template" validate:"required"`
}

// Countdown оставшееся до даты события время.
type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// CountdownUntil считает оставшееся время от now до target. Для прошедших дат всё по нулям.
func CountdownUntil(now, target time.Time) Countdown {
	diff := target.Sub(now)
	if diff <= 0 {
		return Countdown{}
	}
	total := int(diff / time.Second)
	return Countdown{
		Days:    total / 86400,
		Hours:   total % 86400 / 3600,
		Minutes: total % 3600 / 60,
		Seconds: total % 60,
	}
}

// Template шаблон оформления открытки.
type Template struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsPremium bool   `json:"isPremium"`
}

// DefaultTemplate шаблон, выбранный по умолчанию и доступный на бесплатном плане.
const DefaultTemplate = "christmas-classic"

var templates = []Template{
	{ID: DefaultTemplate, Name: "Natal Clássico", IsPremium: false},
	{ID: "winter-wonderland", Name: "Inverno Mágico", IsPremium: true},
	{ID: "golden-elegance", Name: "Elegância Dourada", IsPremium: true},
	{ID: "festive-red", Name: "Vermelho Festivo", IsPremium: true},
	{ID: "midnight-stars", Name: "Noite Estrelada", IsPremium: true},
	{ID: "new-year-party", Name: "Réveillon", IsPremium: true},
	{ID: "cozy-christmas", Name: "Natal Aconchegante", IsPremium: true},
	{ID: "nordic-frost", Name: "Frost Nórdico", IsPremium: true},
}

// Templates возвращает копию каталога шаблонов.
func Templates() []Template {
	res := make([]Template, len(templates))
	copy(res, templates)
	return res
}

// LookupTemplate ищет шаблон по идентификатору.
func LookupTemplate(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}
