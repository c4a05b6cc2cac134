package list

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jassenbt/fx-compass/internal/http/response"
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

func (m *ServiceMock) ListSubscriptions(ctx context.Context, userID string) ([]*models.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func serve(svc Service) *httptest.ResponseRecorder {
	handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	req := httptest.NewRequest(http.MethodGet, "/me/subscriptions", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestList(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("AuthorizeRequest", mock.Anything, "Bearer tok", models.TierFree).Return(&models.User{ID: "u1"}, nil)
	svc.On("ListSubscriptions", mock.Anything, "u1").Return([]*models.Subscription{
		{ID: "s1", Status: models.StatusCancelled},
		{ID: "s2", Status: models.StatusActive},
	}, nil)

	rec := serve(svc)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	items := got.Data.([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "s2", items[1].(map[string]any)["id"])
}

func TestList_EmptyIsArray(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("AuthorizeRequest", mock.Anything, "Bearer tok", models.TierFree).Return(&models.User{ID: "u1"}, nil)
	svc.On("ListSubscriptions", mock.Anything, "u1").Return([]*models.Subscription{}, nil)

	rec := serve(svc)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"OK"`)
}

func TestList_StoreFailure(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("AuthorizeRequest", mock.Anything, "Bearer tok", models.TierFree).Return(&models.User{ID: "u1"}, nil)
	svc.On("ListSubscriptions", mock.Anything, "u1").Return(nil, errors.New("timeout"))

	rec := serve(svc)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
