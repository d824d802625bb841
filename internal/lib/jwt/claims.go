// Package jwt проверяет и выпускает HS256-токены провайдера аутентификации.
//
// Claims повторяет полезную нагрузку токена провайдера: sub это идентификатор
// пользователя, email и phone, а также user_metadata с отображаемым именем.
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserMetadata произвольные данные пользователя из токена.
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
}

// Claims описывает пользовательские данные, хранящиеся в JWT.
type Claims struct {
	Email                string       `json:"email,omitempty"`
	Phone                string       `json:"phone,omitempty"`
	Role                 string       `json:"role,omitempty"`
	UserMetadata         UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims              // sub, iss, aud, exp, iat
}

// UserID возвращает идентификатор пользователя из sub.
func (c *Claims) UserID() string {
	return c.Subject
}
