package festiva

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	cardcreate "github.com/festiva/festiva/internal/http/handlers/cards/create"
	cardlist "github.com/festiva/festiva/internal/http/handlers/cards/list"
	cardpublic "github.com/festiva/festiva/internal/http/handlers/cards/public"
	cardremove "github.com/festiva/festiva/internal/http/handlers/cards/remove"
	"github.com/festiva/festiva/internal/http/handlers/health"
	"github.com/festiva/festiva/internal/http/handlers/payment/paymentcreate"
	"github.com/festiva/festiva/internal/http/handlers/payment/paymentverify"
	"github.com/festiva/festiva/internal/http/handlers/payment/paymentwebhook"
	"github.com/festiva/festiva/internal/http/handlers/subscription/current"
	templatelist "github.com/festiva/festiva/internal/http/handlers/templates/list"
	"github.com/festiva/festiva/internal/http/middlewarectx"
	cardsservice "github.com/festiva/festiva/internal/services/cards"
	paymentservice "github.com/festiva/festiva/internal/services/payment"
	subservice "github.com/festiva/festiva/internal/services/subscription"
)

// Deps зависимости маршрутов.
type Deps struct {
	Verifier      middlewarectx.TokenVerifier
	Payments      *paymentservice.Service
	Subscriptions *subservice.Service
	Cards         *cardsservice.Service
	DB            *sql.DB
	WebhookSecret string
	VerifyRPS     float64
	VerifyBurst   int
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.CORS,
	)

	verifyLimiter := middlewarectx.NewRateLimiter(d.VerifyRPS, d.VerifyBurst)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/payments/webhook", paymentwebhook.New(logger, d.Payments, d.WebhookSecret).ServeHTTP)
		r.Get("/templates", templatelist.New().ServeHTTP)
		r.Get("/public/cards/{slug}", cardpublic.New(logger, d.Cards).ServeHTTP)

		// создание платежа отвечает 400 на любую ошибку, включая авторизацию
		r.With(middlewarectx.JWTMiddleware(d.Verifier, logger, http.StatusBadRequest)).
			Post("/payments/create", paymentcreate.New(logger, d.Payments).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Verifier, logger, http.StatusUnauthorized))
			r.With(middlewarectx.RateLimitMiddleware(verifyLimiter, logger)).
				Post("/payments/verify", paymentverify.New(logger, d.Payments).ServeHTTP)
			r.Get("/subscriptions/current", current.New(logger, d.Subscriptions).ServeHTTP)
			r.Post("/cards", cardcreate.New(logger, d.Cards).ServeHTTP)
			r.Get("/cards", cardlist.New(logger, d.Cards).ServeHTTP)
			r.Delete("/cards/{id}", cardremove.New(logger, d.Cards).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, d.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
