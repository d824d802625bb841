package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultLeeway = 30 * time.Second

// Verifier проверяет подпись и срок действия токенов секретом провайдера аутентификации.
type Verifier struct {
	secretKey []byte
	parser    *jwt.Parser
}

// NewVerifier создаёт Verifier. Пустые issuer и audience не проверяются.
func NewVerifier(secretKey, issuer, audience string) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(defaultLeeway),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &Verifier{
		secretKey: []byte(secretKey),
		parser:    jwt.NewParser(opts...),
	}
}

// ParseToken разбирает токен, проверяет подпись и срок действия
// и возвращает Claims с непустым sub.
func (v *Verifier) ParseToken(tokenStr string) (*Claims, error) {
	const op = "jwt.ParseToken"
	token, err := v.parser.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return v.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("token missing sub"))
	}
	return claims, nil
}

// GenerateToken выпускает токен в формате провайдера. Используется в локальном окружении и тестах.
func GenerateToken(secretKey string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}
