// Package refresh реализует выдачу нового токена доступа по токену обновления.
package refresh

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/jassenbt/fx-compass/internal/http/response"
	"github.com/jassenbt/fx-compass/internal/lib/sl"
	"github.com/jassenbt/fx-compass/internal/lib/validate"
	"github.com/jassenbt/fx-compass/internal/models"
)

// Request тело запроса обновления токена.
type Request struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Service описывает операцию обновления токена.
type Service interface {
	RefreshAccess(ctx context.Context, refreshToken string) (string, error)
}

// Handler обрабатывает запросы обновления токена.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validate.Validator
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validate.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.refresh"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.ErrKind(err))
		response.Fail(w, r, err)
		return
	}

	access, err := h.service.RefreshAccess(r.Context(), req.RefreshToken)
	if err != nil {
		log.Info("refresh rejected", sl.ErrKind(err))
		response.Fail(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"access_token": access,
		"token_type":   models.TokenTypeBearer,
	}))
}
