// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель: упростить формирование структурированных полей лога,
// например, для передачи информации об ошибках.
package sl

import (
	"log/slog"

	"github.com/jassenbt/fx-compass/internal/models"
)

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
// Удобно использовать в логировании для единообразного вывода ошибок.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// ErrKind возвращает группу атрибутов ошибки с её доменным классом.
//
//	log.Warn("login rejected", sl.ErrKind(err))
func ErrKind(err error) slog.Attr {
	return slog.Group("error",
		slog.String("msg", err.Error()),
		slog.String("kind", models.KindOf(err).String()),
	)
}

// Op возвращает атрибут с именем операции.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}
