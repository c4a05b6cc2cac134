// Package infra открывает внешние зависимости приложений и собирает сервисы.
//
// Хранилище обязательно. Кэш и брокер событий необязательны: при их недоступности
// сервисы работают без кэша, а события отбрасываются.
package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/jassenbt/fx-compass/internal/cache"
	"github.com/jassenbt/fx-compass/internal/config"
	"github.com/jassenbt/fx-compass/internal/lib/clock"
	"github.com/jassenbt/fx-compass/internal/lib/jwt"
	"github.com/jassenbt/fx-compass/internal/lib/password"
	"github.com/jassenbt/fx-compass/internal/lib/sl"
	"github.com/jassenbt/fx-compass/internal/migrations"
	"github.com/jassenbt/fx-compass/internal/rabbitmq"
	authservice "github.com/jassenbt/fx-compass/internal/services/auth"
	subservice "github.com/jassenbt/fx-compass/internal/services/subscription"
	userservice "github.com/jassenbt/fx-compass/internal/services/user"
	"github.com/jassenbt/fx-compass/internal/storage/repository"
)

// EventPublisher публикует доменные события.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Infra открытые зависимости приложения.
type Infra struct {
	DB        *repository.Storage
	Cache     *cache.Cache // nil, если Redis недоступен
	Publisher EventPublisher

	cfg    *config.Config
	conn   *amqp.Connection
	pub    *rabbitmq.Publisher
	logger *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range 10 {
		if err = db.CheckDatabaseReady(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// Open подключается к хранилищу, применяет миграции, если migrate истинно,
// и подключает необязательные кэш и брокер.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*Infra, error) {
	const op = "app.infra.Open"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect storage: %w", op, err)
	}
	if err = waitForDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if migrate {
		if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: failed to apply migrations: %w", op, err)
		}
		logger.Info("migrations applied", slog.String("path", cfg.MigrationsPath))
	}

	i := &Infra{
		DB:        db,
		Publisher: rabbitmq.NopPublisher{},
		cfg:       cfg,
		logger:    logger,
	}

	if cfg.RedisConnection.AddressRedis != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			logger.Warn("cache not initialized, continuing without cache", sl.Err(err))
		} else {
			i.Cache = c
		}
	}

	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			logger.Warn("rabbitmq not connected, events are dropped", sl.Err(err))
			return i, nil
		}
		ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange)
		if err != nil {
			_ = conn.Close()
			logger.Warn("rabbitmq channel not ready, events are dropped", sl.Err(err))
			return i, nil
		}
		i.conn = conn
		i.pub = rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange)
		i.Publisher = i.pub
		logger.Info("events publishing enabled", slog.String("exchange", cfg.RabbitMQ.Exchange))
	}

	return i, nil
}

// userCache возвращает кэш пользователей или nil-интерфейс, если кэша нет.
func (i *Infra) userCache() userservice.UserCache {
	if i.Cache == nil {
		return nil
	}
	return cache.NewUserCache(i.Cache, i.cfg.RedisConnection.UserTTL)
}

// Services собранные сервисы приложения.
type Services struct {
	Users         *userservice.UserService
	Subscriptions *subservice.SubscriptionService
	Auth          *authservice.AuthService
}

// NewServices собирает сервисы поверх открытых зависимостей.
// observer может быть nil.
func (i *Infra) NewServices(c clock.Clock, observer authservice.Observer) (*Services, error) {
	const op = "app.infra.NewServices"

	hasher, err := password.NewHasher(i.cfg.Password.HashCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	maker, err := jwt.NewJWTMaker(
		i.cfg.JWTToken.JWTSecretKey,
		i.cfg.JWTToken.Algorithm,
		i.cfg.JWTToken.AccessTokenTTL,
		i.cfg.JWTToken.RefreshTokenTTL,
		c,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	userCache := i.userCache()
	users := userservice.NewUserService(i.DB, userCache, hasher, i.Publisher, c, i.logger)
	subs := subservice.NewSubscriptionService(i.DB, userCache, i.Publisher, c, i.logger)
	return &Services{
		Users:         users,
		Subscriptions: subs,
		Auth:          authservice.NewAuthService(users, subs, maker, observer, i.logger),
	}, nil
}

// Close освобождает все открытые зависимости.
func (i *Infra) Close() {
	if i.pub != nil {
		if err := i.pub.Close(); err != nil {
			i.logger.Error("failed to close rabbitmq channel", sl.Err(err))
		}
	}
	if i.conn != nil {
		if err := i.conn.Close(); err != nil {
			i.logger.Error("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if i.Cache != nil {
		if err := i.Cache.Close(); err != nil {
			i.logger.Error("failed to close cache", sl.Err(err))
		}
	}
	if err := i.DB.Close(); err != nil {
		i.logger.Error("failed to close storage", sl.Err(err))
	}
}
