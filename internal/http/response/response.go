// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/jassenbt/fx-compass/internal/lib/validate"
	"github.com/jassenbt/fx-compass/internal/models"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Kind: класс доменной ошибки, по нему клиент выбирает реакцию.
// Поле Details: нарушения валидации по полям.
// Поле Data: данные ответа (опционально, при успехе).
type Response struct {
	Status  string   `json:"status"`
	Error   string   `json:"error,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	Details []string `json:"details,omitempty"`
	Data    any      `json:"data,omitempty"`
}

const (
	// StatusOK: значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError: значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// StatusCode возвращает HTTP‑код для ошибки по её классу.
func StatusCode(err error) int {
	switch models.KindOf(err) {
	case models.KindValidation:
		return http.StatusUnprocessableEntity
	case models.KindConflict:
		return http.StatusConflict
	case models.KindAuthentication:
		return http.StatusUnauthorized
	case models.KindAuthorization:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FromError формирует Response для ошибки сервиса.
// Текст берётся из доменной ошибки; инфраструктурные ошибки наружу не раскрываются.
func FromError(err error) Response {
	var domain *models.Error
	if !errors.As(err, &domain) {
		return Error("internal error")
	}
	resp := Response{
		Status: StatusError,
		Error:  domain.Msg,
		Kind:   domain.Kind.String(),
	}
	var verr *validate.Error
	if errors.As(err, &verr) {
		resp.Details = validate.Messages(verr.Fields)
	}
	return resp
}

// Fail записывает ответ с ошибкой и соответствующим кодом.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, StatusCode(err))
	render.JSON(w, r, FromError(err))
}

// BadRequest записывает ответ 400 с сообщением.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Error(msg))
}
