// Package services содержит бизнес-логику жизненного цикла подписок:
// оформление, чтение, изменение активной подписки и истечение срока.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jassenbt/fx-compass/internal/lib/clock"
	"github.com/jassenbt/fx-compass/internal/lib/sl"
	"github.com/jassenbt/fx-compass/internal/lib/validate"
	"github.com/jassenbt/fx-compass/internal/models"
)

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
type SubscriptionRepository interface {
	// ReplaceActiveSubscription атомарно отменяет активную подписку, сохраняет новую
	// и меняет тариф пользователя. Возвращает отменённую подписку или nil.
	ReplaceActiveSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, userID string) ([]*models.Subscription, error)
	GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	UpdateActiveSubscription(ctx context.Context, userID string, upd models.SubscriptionUpdate, at time.Time) (*models.Subscription, error)
	ListDueSubscriptions(ctx context.Context, now time.Time) ([]*models.Subscription, error)
	// ExpireSubscription переводит подписку в inactive и пользователя на free.
	ExpireSubscription(ctx context.Context, subscriptionID string, now time.Time) (bool, error)
}

// UserCacheInvalidator сбрасывает кэш пользователя после смены тарифа.
type UserCacheInvalidator interface {
	InvalidateUser(ctx context.Context, id string) error
}

// EventPublisher публикует доменные события.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// SubscriptionService управляет подписками пользователей.
type SubscriptionService struct {
	repo      SubscriptionRepository
	cache     UserCacheInvalidator
	publisher EventPublisher
	validate  *validate.Validator
	clock     clock.Clock
	log       *slog.Logger
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
// cache и publisher могут быть nil.
func NewSubscriptionService(repo SubscriptionRepository, cache UserCacheInvalidator,
	publisher EventPublisher, c clock.Clock, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		validate:  validate.New(),
		clock:     c,
		log:       log,
	}
}

// Subscribe оформляет подписку на тариф на SubscriptionPeriod и делает её
// единственной активной. Тариф пользователя меняется в той же транзакции.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID string, tier models.Tier,
	autoRenew bool, paymentMethodID *string) (*models.Subscription, error) {
	const op = "services.subscription.Subscribe"

	tier, err := models.ParseTier(string(tier))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.validate.Struct(models.SubscribeInput{Tier: tier, PaymentMethodID: paymentMethodID}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.clock.Now()
	end := now.Add(models.SubscriptionPeriod)
	sub := &models.Subscription{
		ID:              uuid.NewString(),
		UserID:          userID,
		Tier:            tier,
		Status:          models.StatusActive,
		StartDate:       now,
		EndDate:         &end,
		AutoRenew:       autoRenew,
		PaymentMethodID: paymentMethodID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	cancelled, err := s.repo.ReplaceActiveSubscription(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op, userID)

	log := s.log.With(slog.String("op", op), slog.String("user_id", userID))
	if cancelled != nil {
		log.Info("previous subscription cancelled", slog.String("subscription_id", cancelled.ID))
	}
	log.Info("subscription activated", slog.String("subscription_id", sub.ID), slog.String("tier", string(tier)))

	s.publish(ctx, models.EventSubscriptionActivated, event(sub, now))
	return sub, nil
}

// ListForUser возвращает все подписки пользователя.
func (s *SubscriptionService) ListForUser(ctx context.Context, userID string) ([]*models.Subscription, error) {
	const op = "services.subscription.ListForUser"
	subs, err := s.repo.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// GetActive возвращает активную подписку пользователя или ErrNoActiveSubscription.
func (s *SubscriptionService) GetActive(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "services.subscription.GetActive"
	sub, err := s.repo.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// UpdateActive меняет автопродление и способ оплаты активной подписки.
func (s *SubscriptionService) UpdateActive(ctx context.Context, userID string, upd models.SubscriptionUpdate) (*models.Subscription, error) {
	const op = "services.subscription.UpdateActive"

	if err := s.validate.Struct(upd); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if upd.Empty() {
		return s.GetActive(ctx, userID)
	}
	sub, err := s.repo.UpdateActiveSubscription(ctx, userID, upd, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ExpireDue обрабатывает активные подписки с истёкшим сроком.
//
// Подписки без автопродления переводятся в inactive, пользователь возвращается
// на бесплатный тариф. Для подписок с автопродлением публикуется событие
// subscription.renewal_due, продление выполняет внешняя платёжная система.
// Возвращает число истёкших подписок; ошибки по отдельным подпискам объединяются.
func (s *SubscriptionService) ExpireDue(ctx context.Context) (int, error) {
	const op = "services.subscription.ExpireDue"
	log := s.log.With(slog.String("op", op))

	now := s.clock.Now()
	due, err := s.repo.ListDueSubscriptions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(due) == 0 {
		log.Debug("no due subscriptions found")
		return 0, nil
	}
	log.Info("found due subscriptions", slog.Int("count", len(due)))

	var (
		expired int
		errs    []error
	)
	for _, sub := range due {
		if sub.AutoRenew {
			s.publish(ctx, models.EventSubscriptionRenewalDue, event(sub, now))
			continue
		}
		ok, err := s.repo.ExpireSubscription(ctx, sub.ID, now)
		if err != nil {
			log.Error("failed to expire subscription", slog.String("subscription_id", sub.ID), sl.Err(err))
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		expired++
		s.invalidate(ctx, op, sub.UserID)
		sub.Status = models.StatusInactive
		s.publish(ctx, models.EventSubscriptionExpired, event(sub, now))
	}

	if len(errs) > 0 {
		return expired, fmt.Errorf("%s: %w", op, errors.Join(errs...))
	}
	return expired, nil
}

func event(sub *models.Subscription, at time.Time) models.SubscriptionEvent {
	return models.SubscriptionEvent{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Tier:           sub.Tier,
		Status:         sub.Status,
		OccurredAt:     at,
	}
}

func (s *SubscriptionService) invalidate(ctx context.Context, op, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.log.Warn("user cache invalidation failed", slog.String("op", op), sl.Err(err))
	}
}

func (s *SubscriptionService) publish(ctx context.Context, key string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		s.log.Warn("failed to publish event", slog.String("event", key), sl.Err(err))
	}
}
