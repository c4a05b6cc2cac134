// Package create реализует оформление подписки текущего пользователя.
//
// Новая подписка становится единственной активной, предыдущая отменяется.
// Если auto_renew не указан, автопродление включено.
package create

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

// Service описывает проверку доступа и оформление подписки.
type Service interface {
	middlewarectx.Authorizer
	Subscribe(ctx context.Context, userID string, tier models.Tier, autoRenew bool, paymentMethodID *string) (*models.Subscription, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.Authorize(w, r, h.service, models.TierFree, log)
	if !ok {
		return
	}

	var req models.SubscribeInput
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "failed to decode request")
		return
	}
	autoRenew := true
	if req.AutoRenew != nil {
		autoRenew = *req.AutoRenew
	}

	sub, err := h.service.Subscribe(r.Context(), user.ID, req.Tier, autoRenew, req.PaymentMethodID)
	if err != nil {
		log.Error("failed to create subscription", slog.String("user_id", user.ID), sl.ErrKind(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("subscription created", slog.String("subscription_id", sub.ID), slog.String("tier", string(sub.Tier)))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(sub))
}
