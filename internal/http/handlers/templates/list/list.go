// Package list отдает каталог шаблонов открыток.
package list

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/festiva/festiva/internal/models"
)

// Handler обработчик каталога шаблонов.
type Handler struct{}

// New создает новый экземпляр Handler.
func New() *Handler {
	return &Handler{}
}

// ServeHTTP godoc
// @Summary Каталог шаблонов
// @Tags Templates
// @Produce  json
// @Success 200 {array} models.Template
// @Router /templates [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, models.Templates())
}
