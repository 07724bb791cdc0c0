package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrSecretMissing = errors.New("jwt secret is not configured")
)

// Claims carries the Telegram id of the authenticated user.
type Claims struct {
	jwt.RegisteredClaims
	TelegramID string `json:"telegram_id"`
}

// GenerateToken signs an HS256 token for telegramID valid for ttl.
func GenerateToken(telegramID string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrSecretMissing
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   telegramID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TelegramID: telegramID,
	})
	return token.SignedString(secret)
}

// ParseToken validates tokenString and returns the Telegram id it carries.
func ParseToken(tokenString string, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrSecretMissing
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.TelegramID == "" {
		return "", ErrInvalidToken
	}
	return claims.TelegramID, nil
}
