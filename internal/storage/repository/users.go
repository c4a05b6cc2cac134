package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jassenbt/fx-compass/internal/models"
)

const (
	constraintEmailUnique    = "users_email_unique"
	constraintUsernameUnique = "users_username_unique"
)

const userColumns = `id, email, username, password_hash, first_name, last_name, tier,
	is_active, email_verified, timezone, preferences, created_at, updated_at, last_login`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var firstName, lastName sql.NullString
	var lastLogin sql.NullTime
	var prefs []byte
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &firstName, &lastName,
		&u.Tier, &u.IsActive, &u.EmailVerified, &u.Timezone, &prefs,
		&u.CreatedAt, &u.UpdatedAt, &lastLogin); err != nil {
		return nil, err
	}
	if firstName.Valid {
		u.FirstName = &firstName.String
	}
	if lastName.Valid {
		u.LastName = &lastName.String
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	u.Preferences = map[string]any{}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	return u, nil
}

func encodePreferences(p map[string]any) (any, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// CreateUser сохраняет нового пользователя.
//
// Проверка занятости email и username и вставка выполняются в одной транзакции.
// Нарушение уникальности при конкурентной вставке также приводит
// к ErrDuplicateEmail или ErrDuplicateUsername.
func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	prefs, err := encodePreferences(u.Preferences)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if prefs == nil {
		prefs = "{}"
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var emailTaken, usernameTaken sql.NullBool
		if err := tx.QueryRowContext(ctx, `
			SELECT bool_or(email = $1), bool_or(username = $2)
			FROM users
			WHERE email = $1 OR username = $2`,
			u.Email, u.Username).Scan(&emailTaken, &usernameTaken); err != nil {
			return err
		}
		if emailTaken.Bool {
			return models.ErrDuplicateEmail
		}
		if usernameTaken.Bool {
			return models.ErrDuplicateUsername
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, username, password_hash, first_name, last_name, tier,
			    is_active, email_verified, timezone, preferences, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13)`,
			u.ID, u.Email, u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Tier,
			u.IsActive, u.EmailVerified, u.Timezone, prefs, u.CreatedAt, u.UpdatedAt)
		return err
	})
	if err != nil {
		switch constraint, ok := uniqueViolation(err); {
		case ok && constraint == constraintEmailUnique:
			err = models.ErrDuplicateEmail
		case ok && constraint == constraintUsernameUnique:
			err = models.ErrDuplicateUsername
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUserByID"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, models.ErrUserNotFound))
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по нормализованному email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, models.ErrUserNotFound))
	}
	return u, nil
}

// TouchLastLogin фиксирует время успешного входа.
func (s *Storage) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const op = "storage.TouchLastLogin"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireAffected(op, res, models.ErrUserNotFound)
}

// UpdateProfile частично обновляет профиль. Поля со значением nil не изменяются.
func (s *Storage) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate, at time.Time) (*models.User, error) {
	const op = "storage.UpdateProfile"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}

	prefs, err := encodePreferences(upd.Preferences)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx, `
		UPDATE users SET
		    first_name  = COALESCE($2, first_name),
		    last_name   = COALESCE($3, last_name),
		    timezone    = COALESCE($4, timezone),
		    preferences = COALESCE($5::jsonb, preferences),
		    updated_at  = $6
		WHERE id = $1
		RETURNING `+userColumns,
		id, upd.FirstName, upd.LastName, upd.Timezone, prefs, at))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, models.ErrUserNotFound))
	}
	return u, nil
}

// SetUserActive включает или отключает учётную запись.
func (s *Storage) SetUserActive(ctx context.Context, id string, active bool, at time.Time) (*models.User, error) {
	const op = "storage.SetUserActive"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx, `
		UPDATE users SET is_active = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+userColumns,
		id, active, at))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, models.ErrUserNotFound))
	}
	return u, nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

func requireAffected(op string, res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sentinel)
	}
	return nil
}
