// Package access проверяет, открыт ли пользователю доступ к функциям тарифа.
//
// GET /access/{tier} отвечает 200, если тариф пользователя не ниже запрошенного,
// и 403 в противном случае.
package access

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/jassenbt/fx-compass/internal/http/middlewarectx"
	"github.com/jassenbt/fx-compass/internal/http/response"
	"github.com/jassenbt/fx-compass/internal/lib/sl"
	"github.com/jassenbt/fx-compass/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service middlewarectx.Authorizer
}

func New(log *slog.Logger, service middlewarectx.Authorizer) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	required, err := models.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		log.Info("invalid tier in url", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	user, ok := middlewarectx.Authorize(w, r, h.service, required, log)
	if !ok {
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_id":  user.ID,
		"tier":     user.Tier,
		"required": required,
		"granted":  true,
	}))
}
