// Package services содержит планировщик фоновой обработки подписок.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/jassenbt/fx-compass/internal/lib/sl"
)

// SubscriptionExpirer обрабатывает подписки с истёкшим сроком.
type SubscriptionExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// SchedulerService периодически запускает обработку истёкших подписок.
type SchedulerService struct {
	expirer  SubscriptionExpirer
	interval time.Duration
	log      *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(expirer SubscriptionExpirer, interval time.Duration, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		expirer:  expirer,
		interval: interval,
		log:      log,
	}
}

// Run выполняет проход сразу и затем на каждом тике, пока ctx не отменён.
// Ошибки прохода только логируются.
func (s *SchedulerService) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один проход по истёкшим подпискам.
func (s *SchedulerService) RunOnce(ctx context.Context) {
	const op = "services.scheduler.RunOnce"
	log := s.log.With(slog.String("op", op))

	if ctx.Err() != nil {
		return
	}
	log.Debug("starting expiry sweep")
	expired, err := s.expirer.ExpireDue(ctx)
	if err != nil {
		log.Error("expiry sweep failed", slog.Int("expired", expired), sl.Err(err))
		return
	}
	if expired > 0 {
		log.Info("subscriptions expired", slog.Int("count", expired))
	}
}
