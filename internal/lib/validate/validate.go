// Package validate оборачивает go-playground/validator правилами предметной области:
// политикой паролей и проверкой часового пояса IANA.
//
// Ошибки валидации возвращаются как *Error, который разворачивается
// в models.ErrWeakPassword или models.ErrInvalidInput.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata" // база часовых поясов не зависит от образа
	"unicode"

	"github.com/go-playground/validator"

	"github.com/jassenbt/fx-compass/internal/models"
)

const (
	PasswordMinLen = 8
	PasswordMaxLen = 72 // предел bcrypt в байтах
)

// Validator проверяет входные структуры. Безопасен для конкурентного использования.
type Validator struct {
	v *validator.Validate
}

// New создаёт Validator с зарегистрированными тегами password и timezone.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// Ошибка возможна только при пустом имени тега.
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("timezone", func(fl validator.FieldLevel) bool {
		return ValidTimezone(fl.Field().String())
	})
	return &Validator{v: v}
}

// Error ошибка валидации с перечнем нарушенных полей.
type Error struct {
	Kind   *models.Error
	Fields validator.ValidationErrors
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.Msg, strings.Join(Messages(e.Fields), ", "))
}

func (e *Error) Unwrap() error { return e.Kind }

// Struct проверяет структуру по тегам validate.
// Нарушение правила password даёт ErrWeakPassword, остальные нарушения ErrInvalidInput.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return fmt.Errorf("validate.Struct: %w", errors.Join(models.ErrInvalidInput, err))
	}
	kind := models.ErrInvalidInput
	for _, f := range fields {
		if f.Tag() == "password" {
			kind = models.ErrWeakPassword
			break
		}
	}
	return &Error{Kind: kind, Fields: fields}
}

// StrongPassword проверяет политику паролей: от 8 до 72 байт,
// хотя бы одна заглавная, одна строчная буква и одна цифра.
func StrongPassword(p string) bool {
	if len(p) < PasswordMinLen || len(p) > PasswordMaxLen {
		return false
	}
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// ValidTimezone сообщает, что строка является именем часового пояса IANA.
func ValidTimezone(tz string) bool {
	if tz == "" || strings.EqualFold(tz, "local") {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// Messages формирует человеко‑читаемые сообщения по каждому нарушению.
func Messages(errs validator.ValidationErrors) []string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		case "password":
			msgs = append(msgs, fmt.Sprintf("field %s must be 8-72 bytes with upper, lower case letters and a digit", err.Field()))
		case "timezone":
			msgs = append(msgs, fmt.Sprintf("field %s must be an IANA time zone", err.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return msgs
}
