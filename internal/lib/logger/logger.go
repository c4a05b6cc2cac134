// Package logger настраивает slog по окружению запуска.
package logger

import (
	"io"
	"log/slog"

	"github.com/jassenbt/fx-compass/internal/config"
)

// New возвращает текстовый логгер уровня debug для local и dev
// и JSON-логгер уровня info для prod.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
