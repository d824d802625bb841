// Package middlewarectx содержит HTTP middleware сервиса: проверку bearer-токена,
// CORS и ограничение частоты запросов.
//
// JWTMiddleware проверяет токен провайдера аутентификации и в случае успеха
// добавляет в контекст идентификатор, email, телефон и имя пользователя.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/festiva/festiva/internal/http/response"
	"github.com/festiva/festiva/internal/lib/jwt"
	"github.com/festiva/festiva/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID ключ идентификатора пользователя (sub токена).
	UserID Key = "user_id"
	// Email ключ email пользователя.
	Email Key = "email"
	// Phone ключ телефона пользователя.
	Phone Key = "phone"
	// FullName ключ имени пользователя из user_metadata.
	FullName Key = "full_name"
)

// TokenVerifier проверяет bearer-токен.
type TokenVerifier interface {
	ParseToken(tokenStr string) (*jwt.Claims, error)
}

// JWTMiddleware возвращает middleware, который проверяет токен в заголовке Authorization.
// При ошибке отвечает failStatus с телом {error}.
func JWTMiddleware(verifier TokenVerifier, log *slog.Logger, failStatus int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				render.Status(r, failStatus)
				render.JSON(w, r, response.Error("Unauthorized"))
				return
			}

			claims, err := verifier.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, failStatus)
				render.JSON(w, r, response.Error("Unauthorized"))
				return
			}

			ctx := context.WithValue(r.Context(), UserID, claims.UserID())
			ctx = context.WithValue(ctx, Email, claims.Email)
			ctx = context.WithValue(ctx, Phone, claims.Phone)
			ctx = context.WithValue(ctx, FullName, claims.UserMetadata.FullName)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFrom достает идентификатор пользователя из контекста.
func UserIDFrom(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserID).(string)
	return userID, ok && userID != ""
}

// StringFrom достает строковое значение из контекста, пустую строку при отсутствии.
func StringFrom(ctx context.Context, key Key) string {
	v, _ := ctx.Value(key).(string)
	return v
}
