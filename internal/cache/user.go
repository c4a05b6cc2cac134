package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jassenbt/fx-compass/internal/models"
)

const (
	userKeyPrefix        = "user:"
	userVersionKeyPrefix = "user:ver:"
)

var errStaleVersion = errors.New("user cache version changed")

// UserCache кэширует записи пользователей по идентификатору.
//
// Каждая инвалидация увеличивает версию записи. Заполнение кэша проходит
// только при неизменной версии, поэтому снимок, прочитанный из хранилища
// до инвалидации, в кэш не попадает.
type UserCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewUserCache создаёт UserCache с временем жизни записи ttl.
func NewUserCache(c *Cache, ttl time.Duration) *UserCache {
	return &UserCache{cache: c, ttl: ttl}
}

// UserKey возвращает ключ Redis для пользователя.
func UserKey(id string) string {
	return userKeyPrefix + id
}

// UserVersionKey возвращает ключ Redis со счётчиком инвалидаций пользователя.
func UserVersionKey(id string) string {
	return userVersionKeyPrefix + id
}

// GetUser возвращает пользователя из кэша. PasswordHash у результата пуст.
func (u *UserCache) GetUser(ctx context.Context, id string) (*models.User, bool, error) {
	var user models.User
	found, err := u.cache.Get(ctx, UserKey(id), &user)
	if err != nil || !found {
		return nil, false, err
	}
	return &user, true, nil
}

// Version возвращает текущую версию записи пользователя. Читать её нужно
// до обращения к хранилищу.
func (u *UserCache) Version(ctx context.Context, id string) (int64, error) {
	const op = "cache.UserCache.Version"
	v, err := u.cache.Db.Get(ctx, UserVersionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// SetUser сохраняет пользователя, если версия записи всё ещё равна version.
// stored=false означает, что запись была инвалидирована после чтения версии.
func (u *UserCache) SetUser(ctx context.Context, user *models.User, version int64) (bool, error) {
	const op = "cache.UserCache.SetUser"
	data, err := json.Marshal(user)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	verKey := UserVersionKey(user.ID)
	err = u.cache.Db.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, verKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return errStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, UserKey(user.ID), data, u.ttl)
			return nil
		})
		return err
	}, verKey)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleVersion), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w", op, err)
	}
}

// InvalidateUser удаляет пользователя из кэша и увеличивает версию записи.
func (u *UserCache) InvalidateUser(ctx context.Context, id string) error {
	const op = "cache.UserCache.InvalidateUser"
	_, err := u.cache.Db.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, UserVersionKey(id))
		p.Del(ctx, UserKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
