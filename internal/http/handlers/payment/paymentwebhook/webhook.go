// Package paymentwebhook принимает уведомления платёжного провайдера.
package paymentwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/festiva/festiva/internal/http/response"
	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/models"
	"github.com/festiva/festiva/internal/services/payment"
)

const (
	maxBodySize     = 1 << 20
	signatureHeader = "X-Webhook-Signature"
	secretParam     = "webhookSecret"
)

// Response подтверждение приёма события.
type Response struct {
	Received  bool   `json:"received"`
	Event     string `json:"event"`
	BillingID string `json:"billingId"`
}

// Service применяет событие провайдера.
type Service interface {
	HandleWebhook(ctx context.Context, body []byte) (*payment.WebhookResult, error)
}

// Handler обработчик вебхука.
type Handler struct {
	log     *slog.Logger
	service Service
	secret  string
}

// New создает новый экземпляр Handler. Пустой secret отключает проверку подписи.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:     log,
		service: service,
		secret:  secret,
	}
}

// ServeHTTP godoc
// @Summary Вебхук платёжного провайдера
// @Description Применяет события billing.paid, billing.expired и billing.refunded. Отвечает 200 на любое разобранное событие.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param X-Webhook-Signature header string false "HMAC-SHA256 тела (hex или base64)"
// @Param webhookSecret query string false "Секрет вебхука"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if !h.authorized(r, body) {
		log.Warn("webhook signature mismatch", sl.Err(models.ErrInvalidSignature))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(models.ErrInvalidSignature.Error()))
		return
	}

	res, err := h.service.HandleWebhook(r.Context(), body)
	if err != nil {
		if errors.Is(err, models.ErrMalformedRequest) {
			log.Warn("malformed webhook payload", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid JSON payload"))
			return
		}
		// прочие ошибки не должны заставлять провайдера повторять доставку
		log.Error("failed to handle webhook", sl.Err(err))
		render.JSON(w, r, Response{Received: true})
		return
	}

	log.Info("webhook processed",
		slog.String("event", res.Event),
		slog.String("billing_id", res.BillingID),
		slog.String("outcome", res.Outcome),
	)
	render.JSON(w, r, Response{
		Received:  true,
		Event:     res.Event,
		BillingID: res.BillingID,
	})
}

func (h *Handler) authorized(r *http.Request, body []byte) bool {
	if h.secret == "" {
		return true
	}
	if provided := r.URL.Query().Get(secretParam); provided != "" {
		return subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) == 1
	}
	return validSignature(h.secret, body, r.Header.Get(signatureHeader))
}

// validSignature сравнивает HMAC-SHA256 тела с подписью в hex или base64.
func validSignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimSpace(strings.TrimPrefix(signature, "sha256="))
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	if got, err := hex.DecodeString(signature); err == nil && hmac.Equal(got, expected) {
		return true
	}
	if got, err := base64.StdEncoding.DecodeString(signature); err == nil && hmac.Equal(got, expected) {
		return true
	}
	return false
}
