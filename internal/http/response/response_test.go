package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jassenbt/fx-compass/internal/lib/validate"
	"github.com/jassenbt/fx-compass/internal/models"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrInvalidInput, http.StatusUnprocessableEntity},
		{models.ErrWeakPassword, http.StatusUnprocessableEntity},
		{models.ErrDuplicateEmail, http.StatusConflict},
		{models.ErrInvalidCredentials, http.StatusUnauthorized},
		{models.ErrInsufficientTier, http.StatusForbidden},
		{models.ErrAccountDisabled, http.StatusForbidden},
		{models.ErrNoActiveSubscription, http.StatusNotFound},
		{fmt.Errorf("op: %w", models.ErrUserNotFound), http.StatusNotFound},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestFromError_HidesInfrastructureErrors(t *testing.T) {
	resp := FromError(fmt.Errorf("storage.repository.GetUserByID: %w", errors.New("dial tcp 10.0.0.1:5432")))

	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "internal error", resp.Error)
	assert.Empty(t, resp.Kind)
}

func TestFromError_JoinedUsesFirstDomainError(t *testing.T) {
	err := fmt.Errorf("op: %w", errors.Join(models.ErrInvalidCredentials, models.ErrUserNotFound))

	resp := FromError(err)

	assert.Equal(t, "invalid email or password", resp.Error)
	assert.Equal(t, "authentication", resp.Kind)
}

func TestFromError_ValidationDetails(t *testing.T) {
	err := validate.New().Struct(models.RegisterInput{Email: "nope", Username: "al", Password: "Passw0rd"})
	require.Error(t, err)

	resp := FromError(err)

	assert.Equal(t, "validation", resp.Kind)
	assert.Contains(t, resp.Details, "field email must be a valid email")
	assert.Contains(t, resp.Details, "field username must be at least 3 characters")
}

func TestFail_WritesStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Fail(rec, req, models.ErrDuplicateUsername)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var got Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, "username already taken", got.Error)
	assert.Equal(t, "conflict", got.Kind)
}
