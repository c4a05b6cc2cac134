package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/jassenbt/fx-compass/internal/http/handlers/access"
	"github.com/jassenbt/fx-compass/internal/http/handlers/auth/login"
	"github.com/jassenbt/fx-compass/internal/http/handlers/auth/refresh"
	"github.com/jassenbt/fx-compass/internal/http/handlers/auth/register"
	"github.com/jassenbt/fx-compass/internal/http/handlers/health"
	"github.com/jassenbt/fx-compass/internal/http/handlers/subscription/active"
	"github.com/jassenbt/fx-compass/internal/http/handlers/subscription/create"
	"github.com/jassenbt/fx-compass/internal/http/handlers/subscription/list"
	subupdate "github.com/jassenbt/fx-compass/internal/http/handlers/subscription/update"
	"github.com/jassenbt/fx-compass/internal/http/handlers/user/me"
	userupdate "github.com/jassenbt/fx-compass/internal/http/handlers/user/update"
	"github.com/jassenbt/fx-compass/internal/http/middlewarectx"
	"github.com/jassenbt/fx-compass/internal/lib/metrics"
	"github.com/jassenbt/fx-compass/internal/models"
)

// AuthAPI операции фасада, доступные через HTTP.
type AuthAPI interface {
	Register(ctx context.Context, in models.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	RefreshAccess(ctx context.Context, refreshToken string) (string, error)
	AuthorizeRequest(ctx context.Context, bearer string, required models.Tier) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error)
	Subscribe(ctx context.Context, userID string, tier models.Tier, autoRenew bool, paymentMethodID *string) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, userID string) ([]*models.Subscription, error)
	GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, userID string, upd models.SubscriptionUpdate) (*models.Subscription, error)
}

// RegisterRoutes регистрирует все маршруты приложения.
// Защищённые обработчики сами вызывают AuthorizeRequest первым действием.
func RegisterRoutes(r chi.Router, logger *slog.Logger, api AuthAPI, checker health.Checker,
	m *metrics.Metrics, limiter *middlewarectx.RateLimiter, metricsHandler http.Handler) {
	// Глобальные middleware, порядок имеет значение
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		m.Middleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(limiter, logger))

		r.Post("/register", register.New(logger, api).ServeHTTP)
		r.Post("/login", login.New(logger, api).ServeHTTP)
		r.Post("/refresh", refresh.New(logger, api).ServeHTTP)

		r.Get("/me", me.New(logger, api).ServeHTTP)
		r.Patch("/me", userupdate.New(logger, api).ServeHTTP)
		r.Post("/me/subscriptions", create.New(logger, api).ServeHTTP)
		r.Get("/me/subscriptions", list.New(logger, api).ServeHTTP)
		r.Get("/me/subscription/active", active.New(logger, api).ServeHTTP)
		r.Patch("/me/subscription/active", subupdate.New(logger, api).ServeHTTP)
		r.Get("/access/{tier}", access.New(logger, api).ServeHTTP)
	})

	r.Get("/health", health.New(logger, checker).ServeHTTP)
	r.Handle("/metrics", metricsHandler)
}
