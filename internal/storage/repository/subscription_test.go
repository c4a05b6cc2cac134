package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jassenbt/fx-compass/internal/models"
)

func TestStorage_Subscriptions(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	t.Run("replace active subscription", func(t *testing.T) {
		u := createUser(t, s, "ivan")

		first := newSubscription(u.ID, models.TierBasic, fixtureTime, true)
		cancelled, err := s.ReplaceActiveSubscription(ctx, first)
		require.NoError(t, err)
		assert.Nil(t, cancelled)

		second := newSubscription(u.ID, models.TierPro, fixtureTime.Add(time.Hour), false)
		cancelled, err = s.ReplaceActiveSubscription(ctx, second)
		require.NoError(t, err)
		require.NotNil(t, cancelled)
		assert.Equal(t, first.ID, cancelled.ID)
		assert.Equal(t, models.StatusCancelled, cancelled.Status)

		active, err := s.GetActiveSubscription(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, active.ID)
		assert.Equal(t, models.TierPro, active.Tier)
		assert.False(t, active.AutoRenew)

		user, err := s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TierPro, user.Tier)

		list, err := s.ListSubscriptions(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, models.StatusCancelled, list[0].Status)
		assert.Equal(t, models.StatusActive, list[1].Status)
		assert.Equal(t, 1, countActive(t, s, u.ID))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := s.ReplaceActiveSubscription(ctx, newSubscription(uuid.NewString(), models.TierPro, fixtureTime, true))
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})

	t.Run("no active subscription", func(t *testing.T) {
		u := createUser(t, s, "judy")

		_, err := s.GetActiveSubscription(ctx, u.ID)
		assert.ErrorIs(t, err, models.ErrNoActiveSubscription)

		renew := false
		_, err = s.UpdateActiveSubscription(ctx, u.ID, models.SubscriptionUpdate{AutoRenew: &renew}, fixtureTime)
		assert.ErrorIs(t, err, models.ErrNoActiveSubscription)

		list, err := s.ListSubscriptions(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("update active subscription", func(t *testing.T) {
		u := createUser(t, s, "ken")
		_, err := s.ReplaceActiveSubscription(ctx, newSubscription(u.ID, models.TierBasic, fixtureTime, true))
		require.NoError(t, err)

		pm := "pm_123"
		got, err := s.UpdateActiveSubscription(ctx, u.ID, models.SubscriptionUpdate{PaymentMethodID: &pm}, fixtureTime.Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, got.PaymentMethodID)
		assert.Equal(t, "pm_123", *got.PaymentMethodID)
		assert.True(t, got.AutoRenew, "untouched field keeps its value")

		renew := false
		got, err = s.UpdateActiveSubscription(ctx, u.ID, models.SubscriptionUpdate{AutoRenew: &renew}, fixtureTime.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, got.AutoRenew)
		assert.Equal(t, "pm_123", *got.PaymentMethodID)
	})

	t.Run("expire due subscriptions", func(t *testing.T) {
		lapsed := createUser(t, s, "liam")
		renewing := createUser(t, s, "mia")
		current := createUser(t, s, "noah")

		past := fixtureTime.Add(-60 * 24 * time.Hour)
		lapsedSub := newSubscription(lapsed.ID, models.TierPro, past, false)
		renewingSub := newSubscription(renewing.ID, models.TierBasic, past, true)
		currentSub := newSubscription(current.ID, models.TierPro, fixtureTime, false)
		for _, sub := range []*models.Subscription{lapsedSub, renewingSub, currentSub} {
			_, err := s.ReplaceActiveSubscription(ctx, sub)
			require.NoError(t, err)
		}

		due, err := s.ListDueSubscriptions(ctx, fixtureTime)
		require.NoError(t, err)
		ids := make([]string, 0, len(due))
		for _, d := range due {
			ids = append(ids, d.ID)
		}
		assert.Contains(t, ids, lapsedSub.ID)
		assert.Contains(t, ids, renewingSub.ID)
		assert.NotContains(t, ids, currentSub.ID)

		expired, err := s.ExpireSubscription(ctx, lapsedSub.ID, fixtureTime)
		require.NoError(t, err)
		assert.True(t, expired)

		expired, err = s.ExpireSubscription(ctx, renewingSub.ID, fixtureTime)
		require.NoError(t, err)
		assert.False(t, expired, "auto-renewing subscription is left to the payment flow")

		expired, err = s.ExpireSubscription(ctx, lapsedSub.ID, fixtureTime)
		require.NoError(t, err)
		assert.False(t, expired, "second expiry is a no-op")

		user, err := s.GetUserByID(ctx, lapsed.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TierFree, user.Tier)
		_, err = s.GetActiveSubscription(ctx, lapsed.ID)
		assert.ErrorIs(t, err, models.ErrNoActiveSubscription)

		user, err = s.GetUserByID(ctx, renewing.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TierBasic, user.Tier)
	})

	t.Run("partial unique index rejects second active row", func(t *testing.T) {
		u := createUser(t, s, "olivia")
		_, err := s.ReplaceActiveSubscription(ctx, newSubscription(u.ID, models.TierBasic, fixtureTime, true))
		require.NoError(t, err)

		_, err = s.DB.Exec(`INSERT INTO subscriptions (id, user_id, tier, status, start_date)
			VALUES ($1, $2, 'pro', 'active', NOW())`, uuid.NewString(), u.ID)
		require.Error(t, err)
		constraint, ok := uniqueViolation(err)
		assert.True(t, ok)
		assert.Equal(t, constraintOneActive, constraint)
	})
}

func TestStorage_ConcurrentReplaceActiveSubscription(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	u := createUser(t, s, "paul")

	tiers := []models.Tier{models.TierBasic, models.TierPro, models.TierInstitutional, models.TierBasic,
		models.TierPro, models.TierInstitutional, models.TierBasic, models.TierPro}

	var wg sync.WaitGroup
	errs := make([]error, len(tiers))
	for i, tier := range tiers {
		wg.Add(1)
		go func(i int, tier models.Tier) {
			defer wg.Done()
			start := fixtureTime.Add(time.Duration(i) * time.Second)
			_, errs[i] = s.ReplaceActiveSubscription(ctx, newSubscription(u.ID, tier, start, true))
		}(i, tier)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, fmt.Sprintf("call %d", i))
	}
	assert.Equal(t, 1, countActive(t, s, u.ID))

	active, err := s.GetActiveSubscription(ctx, u.ID)
	require.NoError(t, err)
	user, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, active.Tier, user.Tier, "user tier follows the last applied subscription")

	list, err := s.ListSubscriptions(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, len(tiers))

	t.Run("expiry sweep racing a new subscription", func(t *testing.T) {
		const rounds = 10
		past := fixtureTime.Add(-60 * 24 * time.Hour)

		for i := 0; i < rounds; i++ {
			owner := createUser(t, s, fmt.Sprintf("sweep%d", i))
			lapsed := newSubscription(owner.ID, models.TierBasic, past, false)
			_, err := s.ReplaceActiveSubscription(ctx, lapsed)
			require.NoError(t, err)

			fresh := newSubscription(owner.ID, models.TierPro, fixtureTime, true)

			var wg sync.WaitGroup
			var expireErr, replaceErr error
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, expireErr = s.ExpireSubscription(ctx, lapsed.ID, fixtureTime)
			}()
			go func() {
				defer wg.Done()
				_, replaceErr = s.ReplaceActiveSubscription(ctx, fresh)
			}()
			wg.Wait()

			require.NoError(t, expireErr, "round %d", i)
			require.NoError(t, replaceErr, "round %d", i)
			assert.Equal(t, 1, countActive(t, s, owner.ID))

			active, err := s.GetActiveSubscription(ctx, owner.ID)
			require.NoError(t, err)
			assert.Equal(t, fresh.ID, active.ID)

			user, err := s.GetUserByID(ctx, owner.ID)
			require.NoError(t, err)
			assert.Equal(t, models.TierPro, user.Tier, "round %d", i)
		}
	})
}
