// Package public отдает публичную открытку по ссылке.
package public

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/festiva/festiva/internal/http/response"
	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/models"
	"github.com/festiva/festiva/internal/services/cards"
)

// Service определяет интерфейс публичного просмотра.
type Service interface {
	PublicView(ctx context.Context, slug string) (*cards.PublicCard, error)
}

// Handler обработчик публичной открытки.
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
// @Summary Публичная открытка
// @Description Без авторизации. Каждый запрос увеличивает счетчик просмотров
// @Tags Cards
// @Produce  json
// @Param slug path string true "Ссылка открытки"
// @Success 200 {object} cards.PublicCard
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /public/cards/{slug} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cards.public"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	slug := chi.URLParam(r, "slug")
	res, err := h.service.PublicView(r.Context(), slug)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("card not found"))
			return
		}
		log.Error("failed to view card", slog.String("slug", slug), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load card"))
		return
	}
	render.JSON(w, r, res)
}
