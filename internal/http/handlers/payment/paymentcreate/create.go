// Package paymentcreate обрабатывает создание платежа за платный план.
package paymentcreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/festiva/festiva/internal/http/middlewarectx"
	"github.com/festiva/festiva/internal/http/response"
	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/models"
	"github.com/festiva/festiva/internal/services/payment"
)

// Request тело запроса на создание платежа.
type Request struct {
	Plan      string `json:"plan" validate:"required,oneof=premium family"`
	ReturnURL string `json:"returnUrl,omitempty"`
}

// Response тело успешного ответа.
type Response struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"paymentUrl"`
	PaymentID  string `json:"paymentId"`
}

// Service определяет интерфейс создания платежа.
type Service interface {
	Initiate(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error)
}

// Handler обрабатывает запросы на создание платежа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать платеж
// @Description Создает счет PIX у провайдера и pending-подписку пользователя. Все ошибки возвращаются со статусом 400.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "План и адрес возврата"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse
// @Router /payments/create [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("Unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("Invalid plan selected"))
		return
	}

	res, err := h.service.Initiate(r.Context(), payment.InitiateRequest{
		UserID:    userID,
		Email:     middlewarectx.StringFrom(r.Context(), middlewarectx.Email),
		Phone:     middlewarectx.StringFrom(r.Context(), middlewarectx.Phone),
		FullName:  middlewarectx.StringFrom(r.Context(), middlewarectx.FullName),
		Plan:      req.Plan,
		ReturnURL: req.ReturnURL,
		Origin:    r.Header.Get("Origin"),
	})
	if err != nil {
		log.Error("failed to create payment", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(errorMessage(err)))
		return
	}

	log.Info("payment created", slog.String("payment_id", res.PaymentID), slog.String("plan", req.Plan))
	render.JSON(w, r, Response{
		Success:    true,
		PaymentURL: res.PaymentURL,
		PaymentID:  res.PaymentID,
	})
}

func errorMessage(err error) string {
	var perr *models.ProviderError
	switch {
	case errors.Is(err, models.ErrInvalidPlan):
		return "Invalid plan selected"
	case errors.As(err, &perr):
		return "Payment provider error: " + perr.Message
	case errors.Is(err, models.ErrProviderError):
		return "Payment provider error"
	default:
		return "Error creating payment"
	}
}
