// Package register реализует HTTP-обработчик регистрации пользователя.
//
// Тело запроса декодируется в models.RegisterInput и передаётся сервису,
// который нормализует и валидирует поля. При успехе возвращается 201 и профиль
// пользователя без хеша пароля.
package register

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/jassenbt/fx-compass/internal/http/response"
	"github.com/jassenbt/fx-compass/internal/lib/sl"
	"github.com/jassenbt/fx-compass/internal/models"
)

// Service описывает операцию регистрации.
type Service interface {
	Register(ctx context.Context, in models.RegisterInput) (*models.User, error)
}

// Handler обрабатывает HTTP-запросы регистрации.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.RegisterInput
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		log.Error("failed to register user", sl.ErrKind(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(user))
}
