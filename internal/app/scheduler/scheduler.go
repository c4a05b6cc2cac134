// Package scheduler содержит приложение фоновой обработки истёкших подписок.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/jassenbt/fx-compass/internal/app/infra"
	"github.com/jassenbt/fx-compass/internal/config"
	"github.com/jassenbt/fx-compass/internal/lib/clock"
	schedulerservice "github.com/jassenbt/fx-compass/internal/services/scheduler"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	infra            *infra.Infra
	logger           *slog.Logger
}

// New создает новый экземпляр приложения планировщика.
// Миграции применяет сервис аутентификации, планировщик их не запускает.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := infra.Open(ctx, cfg, logger, false)
	if err != nil {
		return nil, err
	}

	services, err := deps.NewServices(clock.Real{}, nil)
	if err != nil {
		deps.Close()
		return nil, err
	}

	return &App{
		schedulerService: schedulerservice.NewSchedulerService(services.Subscriptions, cfg.Scheduler.Interval, logger),
		infra:            deps,
		logger:           logger,
	}, nil
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	defer a.infra.Close()

	a.schedulerService.Run(ctx)
	a.logger.Info("shutting down scheduler service")
	return nil
}
