// Package jwt реализует выпуск и проверку подписанных токенов доступа и обновления.
//
// Токены не хранятся на сервере: Maker держит только секрет подписи.
// Access и refresh токены различаются тегом type, поэтому refresh токен
// нельзя предъявить вместо access.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jassenbt/fx-compass/internal/lib/clock"
)

// Maker описывает выпуск и проверку токенов.
type Maker interface {
	IssueAccess(subject string) (string, error)
	IssueRefresh(subject string) (string, error)
	Verify(token string, expected TokenType) (*Claims, error)
}

// MakerImpl реализует Maker на симметричном HMAC.
type MakerImpl struct {
	secretKey  []byte            // Секретный ключ для подписи токенов.
	method     jwt.SigningMethod // HS256, HS384 или HS512.
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
}

// NewJWTMaker создаёт MakerImpl. Пустой секрет, неподдерживаемый алгоритм
// и неположительный TTL считаются ошибкой конфигурации.
func NewJWTMaker(secretKey, algorithm string, accessTTL, refreshTTL time.Duration, c clock.Clock) (*MakerImpl, error) {
	const op = "jwt.NewJWTMaker"
	if secretKey == "" {
		return nil, fmt.Errorf("%s: empty secret key", op)
	}
	var method jwt.SigningMethod
	switch algorithm {
	case "", jwt.SigningMethodHS256.Alg():
		method = jwt.SigningMethodHS256
	case jwt.SigningMethodHS384.Alg():
		method = jwt.SigningMethodHS384
	case jwt.SigningMethodHS512.Alg():
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%s: unsupported algorithm %q", op, algorithm)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("%s: token ttl must be positive", op)
	}
	if c == nil {
		c = clock.Real{}
	}
	return &MakerImpl{
		secretKey:  []byte(secretKey),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      c,
	}, nil
}

// IssueAccess выпускает короткоживущий токен доступа для subject.
func (j *MakerImpl) IssueAccess(subject string) (string, error) {
	return j.issue(subject, TypeAccess, j.accessTTL)
}

// IssueRefresh выпускает долгоживущий токен обновления для subject.
func (j *MakerImpl) IssueRefresh(subject string) (string, error) {
	return j.issue(subject, TypeRefresh, j.refreshTTL)
}

func (j *MakerImpl) issue(subject string, typ TokenType, ttl time.Duration) (string, error) {
	const op = "jwt.issue"
	now := j.clock.Now()
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(j.method, claims).SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// Verify проверяет токен и возвращает его claims.
//
// Порядок проверок: подпись, тип, наличие exp, истечение срока.
// Текущее время берётся из внедрённых часов, а не из библиотеки.
func (j *MakerImpl) Verify(tokenStr string, expected TokenType) (*Claims, error) {
	const op = "jwt.Verify"
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return j.secretKey, nil
	}, jwt.WithValidMethods([]string{j.method.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, errors.Join(ErrInvalidSignature, err))
	}
	if claims.Type != expected {
		return nil, fmt.Errorf("%s: %w", op, ErrTypeMismatch)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingExpiry)
	}
	if j.clock.Now().After(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%s: %w", op, ErrExpired)
	}
	return claims, nil
}
