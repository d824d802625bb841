// Package create обрабатывает создание открытки.
package create

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
)

// Service определяет интерфейс создания открытки.
type Service interface {
	Create(ctx context.Context, userID string, in models.DummyCard) (*models.Card, error)
}

// Handler обработчик создания открытки.
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
// @Summary Создать открытку
// @Description Бесплатный план ограничен числом открыток и шаблонами без пометки premium
// @Tags Cards
// @Accept  json
// @Produce  json
// @Param request body models.DummyCard true "Открытка"
// @Success 201 {object} models.Card
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /cards [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cards.create"
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

	var req models.DummyCard
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if req.Template == "" {
		req.Template = models.DefaultTemplate
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	card, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		status, msg := errorStatus(err)
		log.Error("failed to create card", sl.Err(err))
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("card created", slog.String("card_id", card.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, card)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrUnknownTemplate):
		return http.StatusBadRequest, "unknown template"
	case errors.Is(err, models.ErrMalformedRequest):
		return http.StatusBadRequest, "invalid countdown date"
	case errors.Is(err, models.ErrCardLimitReached):
		return http.StatusForbidden, "free plan card limit reached"
	case errors.Is(err, models.ErrPremiumTemplate):
		return http.StatusForbidden, "template requires a premium plan"
	default:
		return http.StatusInternalServerError, "failed to create card"
	}
}
