package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jassenbt/fx-compass/internal/migrations"
	"github.com/jassenbt/fx-compass/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))
	require.NoError(t, storage.CheckDatabaseReady(ctx))

	return storage
}

var fixtureTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// newUser возвращает пользователя с уникальными email и username.
func newUser(name string) *models.User {
	return &models.User{
		ID:           uuid.NewString(),
		Email:        name + "@example.com",
		Username:     name,
		PasswordHash: "$2a$04$hash",
		Tier:         models.TierFree,
		IsActive:     true,
		Timezone:     models.DefaultTimezone,
		Preferences:  map[string]any{},
		CreatedAt:    fixtureTime,
		UpdatedAt:    fixtureTime,
	}
}

func createUser(t *testing.T, s *Storage, name string) *models.User {
	t.Helper()
	u := newUser(name)
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func newSubscription(userID string, tier models.Tier, start time.Time, autoRenew bool) *models.Subscription {
	end := start.Add(models.SubscriptionPeriod)
	return &models.Subscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		Tier:      tier,
		Status:    models.StatusActive,
		StartDate: start,
		EndDate:   &end,
		AutoRenew: autoRenew,
		CreatedAt: start,
		UpdatedAt: start,
	}
}

func countActive(t *testing.T, s *Storage, userID string) int {
	t.Helper()
	var n int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM subscriptions WHERE user_id = $1 AND status = 'active'`, userID).Scan(&n)
	require.NoError(t, err)
	return n
}
