// Package remove обрабатывает удаление открытки.
package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/festiva/festiva/internal/http/middlewarectx"
	"github.com/festiva/festiva/internal/http/response"
	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/models"
)

// Service определяет интерфейс удаления открытки.
type Service interface {
	Remove(ctx context.Context, userID, id string) error
}

// Handler обработчик удаления открытки.
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
// @Summary Удалить открытку
// @Tags Cards
// @Produce  json
// @Param id path string true "ID открытки"
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /cards/{id} [delete]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cards.remove"
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

	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		log.Warn("invalid id format", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	if err := h.service.Remove(r.Context(), userID, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Warn("card not found", slog.String("card_id", id))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("card not found"))
			return
		}
		log.Error("failed to delete card", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to delete card"))
		return
	}

	log.Info("success to delete card", slog.String("card_id", id))
	w.WriteHeader(http.StatusNoContent)
}
