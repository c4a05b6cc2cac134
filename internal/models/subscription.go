package models

import "time"

// SubscriptionStatus статус подписки.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusInactive  SubscriptionStatus = "inactive"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusTrial     SubscriptionStatus = "trial"
)

// Valid проверяет, что статус входит в перечисление.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusCancelled, StatusTrial:
		return true
	}
	return false
}

// SubscriptionPeriod длительность оплаченного периода новой подписки.
const SubscriptionPeriod = 30 * 24 * time.Hour

// Subscription представляет подписку пользователя на тариф.
// У пользователя в любой момент не более одной подписки со статусом active.
type Subscription struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	Tier            Tier               `json:"tier"`
	Status          SubscriptionStatus `json:"status"`
	StartDate       time.Time          `json:"start_date"`
	EndDate         *time.Time         `json:"end_date,omitempty"`
	AutoRenew       bool               `json:"auto_renew"`
	PaymentMethodID *string            `json:"payment_method_id,omitempty"` // Ссылка на способ оплаты во внешней системе
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// SubscribeInput входные данные оформления подписки.
type SubscribeInput struct {
	Tier            Tier    `json:"tier" validate:"required"`
	AutoRenew       *bool   `json:"auto_renew,omitempty"`
	PaymentMethodID *string `json:"payment_method_id,omitempty" validate:"omitempty,max=100"`
}

// SubscriptionUpdate частичное обновление активной подписки.
type SubscriptionUpdate struct {
	AutoRenew       *bool   `json:"auto_renew,omitempty"`
	PaymentMethodID *string `json:"payment_method_id,omitempty" validate:"omitempty,max=100"`
}

// Empty сообщает, что обновление не затрагивает ни одного поля.
func (u SubscriptionUpdate) Empty() bool {
	return u.AutoRenew == nil && u.PaymentMethodID == nil
}

// Event типы доменных событий, публикуемых после фиксации транзакции.
const (
	EventUserRegistered         = "user.registered"
	EventSubscriptionActivated  = "subscription.activated"
	EventSubscriptionExpired    = "subscription.expired"
	EventSubscriptionRenewalDue = "subscription.renewal_due"
)

// SubscriptionEvent полезная нагрузка событий подписки.
type SubscriptionEvent struct {
	SubscriptionID string             `json:"subscription_id"`
	UserID         string             `json:"user_id"`
	Tier           Tier               `json:"tier"`
	Status         SubscriptionStatus `json:"status"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// UserEvent полезная нагрузка событий пользователя.
type UserEvent struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}
