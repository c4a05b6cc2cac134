// Package update меняет автопродление и способ оплаты активной подписки.
package update

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
	UpdateSubscription(ctx context.Context, userID string, upd models.SubscriptionUpdate) (*models.Subscription, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.Authorize(w, r, h.service, models.TierFree, log)
	if !ok {
		return
	}

	var req models.SubscriptionUpdate
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "failed to decode request")
		return
	}

	sub, err := h.service.UpdateSubscription(r.Context(), user.ID, req)
	if err != nil {
		log.Error("failed to update subscription", sl.ErrKind(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("subscription updated", slog.String("subscription_id", sub.ID))
	render.JSON(w, r, response.OKWithData(sub))
}
