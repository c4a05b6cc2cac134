// Package services реализует фасад аутентификации: регистрацию, вход,
// обновление токена доступа и авторизацию запросов по тарифу.
//
// Каждый защищённый обработчик явно вызывает AuthorizeRequest в начале работы.
// Тариф всегда читается из хранилища, а не из токена.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jassenbt/fx-compass/internal/lib/jwt"
	"github.com/jassenbt/fx-compass/internal/lib/tier"
	"github.com/jassenbt/fx-compass/internal/lib/validate"
	"github.com/jassenbt/fx-compass/internal/models"
)

// UserDirectory каталог пользователей.
type UserDirectory interface {
	Register(ctx context.Context, in models.RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) (*models.User, error)
}

// SubscriptionManager управление подписками.
type SubscriptionManager interface {
	Subscribe(ctx context.Context, userID string, tier models.Tier, autoRenew bool, paymentMethodID *string) (*models.Subscription, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Subscription, error)
	GetActive(ctx context.Context, userID string) (*models.Subscription, error)
	UpdateActive(ctx context.Context, userID string, upd models.SubscriptionUpdate) (*models.Subscription, error)
}

// Observer получает исходы операций для метрик.
type Observer interface {
	ObserveAuth(operation string, err error)
}

// Названия операций для метрик.
const (
	OpRegister  = "register"
	OpLogin     = "login"
	OpRefresh   = "refresh"
	OpAuthorize = "authorize"
)

// AuthService фасад аутентификации и управления учётной записью.
type AuthService struct {
	users    UserDirectory
	subs     SubscriptionManager
	jwtMaker jwt.Maker
	observer Observer
	validate *validate.Validator
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService. observer может быть nil.
func NewAuthService(users UserDirectory, subs SubscriptionManager, jwtMaker jwt.Maker,
	observer Observer, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		subs:     subs,
		jwtMaker: jwtMaker,
		observer: observer,
		validate: validate.New(),
		log:      log,
	}
}

// Register создаёт пользователя.
//
// Входные данные и политика паролей проверяются до обращения к каталогу:
// слабый пароль даёт ErrWeakPassword, прочие нарушения ErrInvalidInput.
func (s *AuthService) Register(ctx context.Context, in models.RegisterInput) (user *models.User, err error) {
	const op = "services.auth.Register"
	defer s.observe(OpRegister, &err)

	check := in
	check.Email = strings.TrimSpace(check.Email)
	check.Username = strings.TrimSpace(check.Username)
	if err = s.validate.Struct(check); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err = s.users.Register(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Login проверяет учётные данные и выдаёт пару токенов.
//
// Неизвестный email и неверный пароль неразличимы для клиента: оба дают
// ErrInvalidCredentials. ErrAccountDisabled возвращается только при верном пароле.
func (s *AuthService) Login(ctx context.Context, email, password string) (session *models.Session, err error) {
	const op = "services.auth.Login"
	defer s.observe(OpLogin, &err)

	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			err = errors.Join(models.ErrInvalidCredentials, err)
		}
		s.log.Info("login rejected", slog.String("op", op), slog.String("reason", models.KindOf(err).String()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	access, err := s.jwtMaker.IssueAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	refresh, err := s.jwtMaker.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("login success", slog.String("op", op), slog.String("user_id", user.ID))
	return &models.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    models.TokenTypeBearer,
		User:         user,
	}, nil
}

// RefreshAccess выдаёт новый токен доступа по токену обновления,
// если учётная запись всё ещё активна.
func (s *AuthService) RefreshAccess(ctx context.Context, refreshToken string) (access string, err error) {
	const op = "services.auth.RefreshAccess"
	defer s.observe(OpRefresh, &err)

	claims, err := s.jwtMaker.Verify(refreshToken, jwt.TypeRefresh)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if _, err = s.activeUser(ctx, claims.Subject); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	access, err = s.jwtMaker.IssueAccess(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return access, nil
}

// AuthorizeRequest проверяет токен доступа и тариф пользователя.
//
// Порядок проверок: токен, существование пользователя, активность, тариф.
func (s *AuthService) AuthorizeRequest(ctx context.Context, bearer string, required models.Tier) (user *models.User, err error) {
	const op = "services.auth.AuthorizeRequest"
	defer s.observe(OpAuthorize, &err)

	claims, err := s.jwtMaker.Verify(BearerToken(bearer), jwt.TypeAccess)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err = s.activeUser(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !tier.Authorize(user.Tier, required) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInsufficientTier)
	}
	return user, nil
}

func (s *AuthService) activeUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, models.ErrAccountDisabled
	}
	return user, nil
}

// BearerToken извлекает токен из значения заголовка Authorization.
// Значение без схемы Bearer возвращается как есть.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// UpdateProfile частично обновляет профиль пользователя.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	const op = "services.auth.UpdateProfile"
	user, err := s.users.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// SetActive включает или отключает учётную запись.
func (s *AuthService) SetActive(ctx context.Context, userID string, active bool) (*models.User, error) {
	const op = "services.auth.SetActive"
	user, err := s.users.SetActive(ctx, userID, active)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Subscribe оформляет подписку на тариф.
func (s *AuthService) Subscribe(ctx context.Context, userID string, t models.Tier, autoRenew bool, paymentMethodID *string) (*models.Subscription, error) {
	const op = "services.auth.Subscribe"
	sub, err := s.subs.Subscribe(ctx, userID, t, autoRenew, paymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ListSubscriptions возвращает все подписки пользователя.
func (s *AuthService) ListSubscriptions(ctx context.Context, userID string) ([]*models.Subscription, error) {
	const op = "services.auth.ListSubscriptions"
	subs, err := s.subs.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// GetActiveSubscription возвращает активную подписку пользователя.
func (s *AuthService) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "services.auth.GetActiveSubscription"
	sub, err := s.subs.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// UpdateSubscription меняет параметры активной подписки.
func (s *AuthService) UpdateSubscription(ctx context.Context, userID string, upd models.SubscriptionUpdate) (*models.Subscription, error) {
	const op = "services.auth.UpdateSubscription"
	sub, err := s.subs.UpdateActive(ctx, userID, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

func (s *AuthService) observe(operation string, err *error) {
	if s.observer != nil {
		s.observer.ObserveAuth(operation, *err)
	}
}
