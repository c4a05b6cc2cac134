package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jassenbt/fx-compass/internal/http/response"
	"github.com/jassenbt/fx-compass/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	input := models.RegisterInput{Email: "a@x.com", Username: "alice", Password: "Passw0rd"}

	tests := []struct {
		name       string
		body       string
		mockUser   *models.User
		mockErr    error
		wantStatus int
		wantError  string
	}{
		{
			name:       "created",
			body:       `{"email":"a@x.com","username":"alice","password":"Passw0rd"}`,
			mockUser:   &models.User{ID: "u1", Email: "a@x.com", Username: "alice", Tier: models.TierFree, PasswordHash: "secret"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid json",
			body:       "not a json",
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "duplicate email",
			body:       `{"email":"a@x.com","username":"alice","password":"Passw0rd"}`,
			mockErr:    fmt.Errorf("services.user.Register: %w", models.ErrDuplicateEmail),
			wantStatus: http.StatusConflict,
			wantError:  "email already registered",
		},
		{
			name:       "weak password",
			body:       `{"email":"a@x.com","username":"alice","password":"Passw0rd"}`,
			mockErr:    models.ErrWeakPassword,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "password does not satisfy policy",
		},
		{
			name:       "store failure",
			body:       `{"email":"a@x.com","username":"alice","password":"Passw0rd"}`,
			mockErr:    errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.mockUser != nil || tt.mockErr != nil {
				svc.On("Register", mock.Anything, input).Return(tt.mockUser, tt.mockErr).Once()
			}
			handler := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader([]byte(tt.body)))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "secret")

			var got response.Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantError != "" {
				assert.Equal(t, response.StatusError, got.Status)
				assert.Equal(t, tt.wantError, got.Error)
			} else {
				assert.Equal(t, response.StatusOK, got.Status)
				data := got.Data.(map[string]any)
				assert.Equal(t, "u1", data["id"])
				assert.Equal(t, "free", data["tier"])
			}
			svc.AssertExpectations(t)
		})
	}
}
