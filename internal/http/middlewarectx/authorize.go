// Package middlewarectx содержит промежуточные обработчики HTTP и проверку
// доступа, которую защищённые обработчики вызывают первым действием.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jassenbt/fx-compass/internal/http/response"
	"github.com/jassenbt/fx-compass/internal/lib/sl"
	"github.com/jassenbt/fx-compass/internal/models"
)

// Authorizer проверяет токен доступа и тариф пользователя.
type Authorizer interface {
	AuthorizeRequest(ctx context.Context, bearer string, required models.Tier) (*models.User, error)
}

// Authorize проверяет заголовок Authorization запроса. При отказе записывает
// ответ с ошибкой и возвращает false.
func Authorize(w http.ResponseWriter, r *http.Request, a Authorizer, required models.Tier, log *slog.Logger) (*models.User, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		log.Info("missing authorization header")
		response.Fail(w, r, models.ErrMissingToken)
		return nil, false
	}
	user, err := a.AuthorizeRequest(r.Context(), header, required)
	if err != nil {
		log.Info("request not authorized", sl.ErrKind(err))
		response.Fail(w, r, err)
		return nil, false
	}
	return user, true
}
