// Package paymentverify обрабатывает проверку оплаты по запросу клиента.
package paymentverify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/festiva/festiva/internal/http/middlewarectx"
	"github.com/festiva/festiva/internal/http/response"
	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/models"
	"github.com/festiva/festiva/internal/services/payment"
)

// Response результат проверки оплаты.
type Response struct {
	Success      bool                 `json:"success"`
	Status       string               `json:"status" enums:"active,pending,no_pending,expired,refunded"`
	Message      string               `json:"message"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

// Service проверяет оплату пользователя у провайдера.
type Service interface {
	Verify(ctx context.Context, userID string) (*payment.VerifyResult, error)
}

// Handler обработчик проверки оплаты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверить оплату
// @Description Сверяет последнюю pending-подписку со счетами провайдера и активирует ее после оплаты
// @Tags Payments
// @Produce  json
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /payments/verify [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.verify"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("Unauthorized"))
		return
	}

	res, err := h.service.Verify(r.Context(), userID)
	if err != nil {
		log.Error("failed to verify payment", sl.Err(err))
		msg := "Error fetching subscription"
		if errors.Is(err, models.ErrProviderError) {
			msg = "Error checking payment status"
		}
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("payment verified", slog.String("user_id", userID), slog.String("status", res.Status))
	render.JSON(w, r, Response{
		Success:      res.Success,
		Status:       res.Status,
		Message:      res.Message,
		Subscription: res.Subscription,
	})
}
