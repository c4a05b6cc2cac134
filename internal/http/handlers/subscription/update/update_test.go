package update

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jassenbt/fx-compass/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) AuthorizeRequest(ctx context.Context, bearer string, required models.Tier) (*models.User, error) {
	args := m.Called(ctx, bearer, required)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *ServiceMock) UpdateSubscription(ctx context.Context, userID string, upd models.SubscriptionUpdate) (*models.Subscription, error) {
	args := m.Called(ctx, userID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func TestUpdateSubscription(t *testing.T) {
	off := false

	tests := []struct {
		name       string
		body       string
		sub        *models.Subscription
		err        error
		wantStatus int
	}{
		{name: "disable auto renew", body: `{"auto_renew":false}`, sub: &models.Subscription{ID: "s1", AutoRenew: false}, wantStatus: http.StatusOK},
		{name: "no active subscription", body: `{"auto_renew":false}`, err: models.ErrNoActiveSubscription, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			svc.On("AuthorizeRequest", mock.Anything, "Bearer tok", models.TierFree).Return(&models.User{ID: "u1"}, nil)
			svc.On("UpdateSubscription", mock.Anything, "u1", models.SubscriptionUpdate{AutoRenew: &off}).Return(tt.sub, tt.err)

			handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
			req := httptest.NewRequest(http.MethodPatch, "/me/subscription/active", strings.NewReader(tt.body))
			req.Header.Set("Authorization", "Bearer tok")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}
