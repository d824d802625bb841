// Package health отвечает на проверки готовности.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/festiva/festiva/internal/http/response"
	"github.com/festiva/festiva/internal/lib/sl"
)

// Pinger проверка доступности зависимости.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler обработчик проверки здоровья.
type Handler struct {
	log *slog.Logger
	db  Pinger
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, db Pinger) *Handler {
	return &Handler{
		log: log,
		db:  db,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	if err := h.db.PingContext(r.Context()); err != nil {
		h.log.With(slog.String("op", op)).Error("database is not reachable", sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database unavailable"))
		return
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}
