package models

import "errors"

// Kind класс доменной ошибки. По нему транспортный слой выбирает код ответа,
// а клиент отличает «войдите снова» от «повысьте тариф».
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindAuthorization
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error доменная ошибка с классом. Значения сравниваются через errors.Is.
type Error struct {
	Kind Kind
	Msg  string
}

// NewError создаёт доменную ошибку заданного класса.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }

var (
	// Validation
	ErrInvalidInput = NewError(KindValidation, "invalid input")
	ErrWeakPassword = NewError(KindValidation, "password does not satisfy policy")
	ErrInvalidTier  = NewError(KindValidation, "invalid tier")

	// Conflict
	ErrDuplicateEmail              = NewError(KindConflict, "email already registered")
	ErrDuplicateUsername           = NewError(KindConflict, "username already taken")
	ErrDuplicateActiveSubscription = NewError(KindConflict, "user already has an active subscription")

	// Authentication
	ErrInvalidCredentials = NewError(KindAuthentication, "invalid email or password")
	ErrMissingToken       = NewError(KindAuthentication, "missing authorization token")

	// Authorization
	ErrAccountDisabled  = NewError(KindAuthorization, "account is disabled")
	ErrInsufficientTier = NewError(KindAuthorization, "insufficient tier")

	// NotFound
	ErrUserNotFound         = NewError(KindNotFound, "user not found")
	ErrNoActiveSubscription = NewError(KindNotFound, "no active subscription found")
)

// KindOf возвращает класс ошибки или KindUnknown для инфраструктурных ошибок.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
