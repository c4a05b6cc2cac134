// Package services реализует каталог пользователей: регистрацию, проверку
// учётных данных, чтение и изменение профиля.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jassenbt/fx-compass/internal/lib/clock"
	"github.com/jassenbt/fx-compass/internal/lib/sl"
	"github.com/jassenbt/fx-compass/internal/lib/validate"
	"github.com/jassenbt/fx-compass/internal/models"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate, at time.Time) (*models.User, error)
	SetUserActive(ctx context.Context, id string, active bool, at time.Time) (*models.User, error)
}

// UserCache кэш записей пользователей по идентификатору.
//
// SetUser записывает значение, только если версия записи не менялась
// с момента вызова Version. InvalidateUser меняет версию.
type UserCache interface {
	GetUser(ctx context.Context, id string) (*models.User, bool, error)
	Version(ctx context.Context, id string) (int64, error)
	SetUser(ctx context.Context, u *models.User, version int64) (bool, error)
	InvalidateUser(ctx context.Context, id string) error
}

// PasswordHasher хеширует и проверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// EventPublisher публикует доменные события.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// UserService каталог пользователей.
type UserService struct {
	repo      UserRepository
	cache     UserCache
	hasher    PasswordHasher
	validate  *validate.Validator
	publisher EventPublisher
	clock     clock.Clock
	log       *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService создает новый экземпляр UserService. cache может быть nil.
func NewUserService(repo UserRepository, cache UserCache, hasher PasswordHasher,
	publisher EventPublisher, c clock.Clock, log *slog.Logger) *UserService {
	return &UserService{
		repo:      repo,
		cache:     cache,
		hasher:    hasher,
		validate:  validate.New(),
		publisher: publisher,
		clock:     c,
		log:       log,
	}
}

// NormalizeEmail приводит email к каноническому виду.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт пользователя на бесплатном тарифе.
func (s *UserService) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	const op = "services.user.Register"

	in.Email = NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.clock.Now()
	timezone := in.Timezone
	if timezone == "" {
		timezone = models.DefaultTimezone
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Tier:         models.TierFree,
		IsActive:     true,
		Timezone:     timezone,
		Preferences:  map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user registered", slog.String("op", op), slog.String("user_id", user.ID))
	s.publish(ctx, models.EventUserRegistered, models.UserEvent{
		UserID:     user.ID,
		Email:      user.Email,
		Username:   user.Username,
		OccurredAt: now,
	})
	return user, nil
}

// Authenticate проверяет email и пароль.
//
// Неизвестный email даёт ErrUserNotFound, неверный пароль ErrInvalidCredentials.
// Отключённая учётная запись даёт ErrAccountDisabled только при верном пароле.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	const op = "services.user.Authenticate"

	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			// выравниваем время ответа с веткой существующего пользователя
			s.hasher.Verify(password, s.dummy())
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAccountDisabled)
	}

	now := s.clock.Now()
	if err = s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.LastLogin = &now
	return user, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.log.Error("failed to build dummy hash", sl.Err(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// FindByID возвращает пользователя, читая через кэш.
// У записи из кэша PasswordHash пуст.
//
// Версия записи читается до обращения к хранилищу. Если между чтением
// и заполнением кэша запись инвалидировали, снимок в кэш не пишется.
func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	const op = "services.user.FindByID"

	fill := false
	var version int64
	if s.cache != nil {
		user, found, err := s.cache.GetUser(ctx, id)
		if err != nil {
			s.log.Warn("user cache read failed", slog.String("op", op), sl.Err(err))
		}
		if found {
			return user, nil
		}
		if version, err = s.cache.Version(ctx, id); err != nil {
			s.log.Warn("user cache version read failed", slog.String("op", op), sl.Err(err))
		} else {
			fill = true
		}
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if fill {
		stored, err := s.cache.SetUser(ctx, user, version)
		if err != nil {
			s.log.Warn("user cache write failed", slog.String("op", op), sl.Err(err))
		} else if !stored {
			s.log.Debug("user cache fill skipped, record changed", slog.String("op", op), slog.String("user_id", id))
		}
	}
	return user, nil
}

// FindByEmail возвращает пользователя по email напрямую из хранилища.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "services.user.FindByEmail"
	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UpdateProfile частично обновляет профиль. Пустое обновление возвращает текущее состояние.
func (s *UserService) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	const op = "services.user.UpdateProfile"

	if err := s.validate.Struct(upd); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if upd.Empty() {
		return s.FindByID(ctx, id)
	}

	user, err := s.repo.UpdateProfile(ctx, id, upd, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op, id)
	return user, nil
}

// SetActive включает или отключает учётную запись.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	const op = "services.user.SetActive"

	user, err := s.repo.SetUserActive(ctx, id, active, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op, id)
	s.log.Info("user activity changed", slog.String("op", op), slog.String("user_id", id), slog.Bool("active", active))
	return user, nil
}

func (s *UserService) invalidate(ctx context.Context, op, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, id); err != nil {
		s.log.Warn("user cache invalidation failed", slog.String("op", op), sl.Err(err))
	}
}

func (s *UserService) publish(ctx context.Context, key string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		s.log.Warn("failed to publish event", slog.String("event", key), sl.Err(err))
	}
}
