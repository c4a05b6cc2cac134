// Package list возвращает историю подписок текущего пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/jassenbt/fx-compass/internal/http/middlewarectx"
	"github.com/jassenbt/fx-compass/internal/http/response"
	"github.com/jassenbt/fx-compass/internal/lib/sl"
	"github.com/jassenbt/fx-compass/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	middlewarectx.Authorizer
	ListSubscriptions(ctx context.Context, userID string) ([]*models.Subscription, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.Authorize(w, r, h.service, models.TierFree, log)
	if !ok {
		return
	}

	subs, err := h.service.ListSubscriptions(r.Context(), user.ID)
	if err != nil {
		log.Error("failed to list subscriptions", sl.ErrKind(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("subscriptions listed", slog.Int("count", len(subs)))
	render.JSON(w, r, response.OKWithData(subs))
}
