// Package password реализует одностороннее хеширование и проверку паролей.
//
// Hasher создаёт bcrypt-хеш с уникальной солью и настраиваемой стоимостью.
// Verify сравнивает пароль с хешем за время, не зависящее от позиции несовпадения.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost стоимость bcrypt по умолчанию (2^12 раундов).
const DefaultCost = 12

// Hasher хеширует и проверяет пароли. Значение неизменяемо и безопасно
// для конкурентного использования.
type Hasher struct {
	cost int
}

// NewHasher создаёт Hasher с заданной стоимостью.
// Стоимость вне диапазона bcrypt считается ошибкой конфигурации.
func NewHasher(cost int) (*Hasher, error) {
	const op = "password.NewHasher"
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%s: cost %d out of range [%d, %d]", op, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Cost возвращает стоимость хеширования.
func (h *Hasher) Cost() int { return h.cost }

// Hash принимает пароль пользователя и возвращает его bcrypt‑хэш.
//
// Каждый вызов использует новую соль, поэтому два хэша одного пароля различаются.
func (h *Hasher) Hash(password string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Verify сообщает, соответствует ли пароль хэшу.
//
// Несовпадение и повреждённый хэш дают false, ошибка не возвращается.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
