// Package models содержит доменные структуры учётной записи и подписки,
// перечисления тарифов и статусов, а также каталог доменных ошибок.
// Структуры используются в бизнес‑логике, хранилище и HTTP‑слое.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID            string         `json:"id"`                   // Уникальный идентификатор пользователя (UUID)
	Email         string         `json:"email"`                // Электронная почта в нижнем регистре (уникальная)
	Username      string         `json:"username"`             // Имя пользователя (уникальное, 3..50 символов)
	PasswordHash  string         `json:"-"`                    // Хэш пароля, никогда не сериализуется
	FirstName     *string        `json:"first_name,omitempty"` // Имя
	LastName      *string        `json:"last_name,omitempty"`  // Фамилия
	Tier          Tier           `json:"tier"`                 // Текущий тариф
	IsActive      bool           `json:"is_active"`            // false, если учётная запись отключена
	EmailVerified bool           `json:"email_verified"`
	Timezone      string         `json:"timezone"`
	Preferences   map[string]any `json:"preferences"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	LastLogin     *time.Time     `json:"last_login,omitempty"`
}

// DefaultTimezone часовой пояс пользователя по умолчанию.
const DefaultTimezone = "UTC"

// RegisterInput входные данные регистрации до валидации.
type RegisterInput struct {
	Email     string  `json:"email" validate:"required,email,max=255"`
	Username  string  `json:"username" validate:"required,min=3,max=50"`
	Password  string  `json:"password" validate:"required,password"`
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Timezone  string  `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

// ProfileUpdate описывает частичное обновление профиля.
// Поля со значением nil не изменяются.
type ProfileUpdate struct {
	FirstName   *string        `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName    *string        `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Timezone    *string        `json:"timezone,omitempty" validate:"omitempty,timezone"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// Empty сообщает, что обновление не затрагивает ни одного поля.
func (p ProfileUpdate) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Timezone == nil && p.Preferences == nil
}
