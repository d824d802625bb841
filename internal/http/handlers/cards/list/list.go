// Package list отдает открытки пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/festiva/festiva/internal/http/middlewarectx"
	"github.com/festiva/festiva/internal/http/response"
	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/models"
)

// Service определяет интерфейс чтения открыток.
type Service interface {
	List(ctx context.Context, userID string) ([]*models.Card, error)
}

// Handler обработчик списка открыток.
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
// @Summary Список открыток
// @Tags Cards
// @Produce  json
// @Success 200 {array} models.Card
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /cards [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cards.list"
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

	res, err := h.service.List(r.Context(), userID)
	if err != nil {
		log.Error("failed to list cards", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list cards"))
		return
	}

	log.Info("success to list cards", slog.Int("count", len(res)))
	render.JSON(w, r, res)
}
