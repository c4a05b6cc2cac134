package jwt

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/jassenbt/fx-compass/internal/models"
)

// TokenType тег назначения токена внутри claims.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Claims данные, подписываемые в токене. Subject содержит идентификатор пользователя.
type Claims struct {
	Type TokenType `json:"type"` // access или refresh
	jwt.RegisteredClaims
}

// Ошибки проверки токена. Все относятся к классу аутентификации
// и не подлежат повторной попытке.
var (
	ErrInvalidSignature = models.NewError(models.KindAuthentication, "invalid token signature")
	ErrTypeMismatch     = models.NewError(models.KindAuthentication, "token type mismatch")
	ErrMissingExpiry    = models.NewError(models.KindAuthentication, "token has no expiry")
	ErrExpired          = models.NewError(models.KindAuthentication, "token expired")
)
