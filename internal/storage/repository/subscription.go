package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jassenbt/fx-compass/internal/models"
)

const constraintOneActive = "idx_subscriptions_one_active"

const subscriptionColumns = `id, user_id, tier, status, start_date, end_date, auto_renew,
	payment_method_id, created_at, updated_at`

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var endDate sql.NullTime
	var paymentMethodID sql.NullString
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.Tier, &sub.Status, &sub.StartDate, &endDate,
		&sub.AutoRenew, &paymentMethodID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if endDate.Valid {
		sub.EndDate = &endDate.Time
	}
	if paymentMethodID.Valid {
		sub.PaymentMethodID = &paymentMethodID.String
	}
	return sub, nil
}

// ReplaceActiveSubscription делает sub единственной активной подпиской пользователя.
//
// В одной транзакции: блокирует строку пользователя, отменяет текущую активную
// подписку, вставляет новую и переводит пользователя на её тариф.
// Возвращает отменённую подписку, если она была.
func (s *Storage) ReplaceActiveSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	const op = "storage.ReplaceActiveSubscription"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := uuid.Parse(sub.UserID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}

	var cancelled *models.Subscription
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var userID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM users WHERE id = $1 FOR UPDATE`, sub.UserID).Scan(&userID)
		if err != nil {
			return notFound(err, models.ErrUserNotFound)
		}

		cancelled, err = scanSubscription(tx.QueryRowContext(ctx, `
			UPDATE subscriptions SET status = $2, updated_at = $3
			WHERE user_id = $1 AND status = $4
			RETURNING `+subscriptionColumns,
			sub.UserID, models.StatusCancelled, sub.CreatedAt, models.StatusActive))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if _, err = tx.ExecContext(ctx, `
			INSERT INTO subscriptions (id, user_id, tier, status, start_date, end_date,
			    auto_renew, payment_method_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			sub.ID, sub.UserID, sub.Tier, sub.Status, sub.StartDate, sub.EndDate,
			sub.AutoRenew, sub.PaymentMethodID, sub.CreatedAt, sub.UpdatedAt); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET tier = $2, updated_at = $3 WHERE id = $1`,
			sub.UserID, sub.Tier, sub.UpdatedAt)
		return err
	})
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == constraintOneActive {
			err = models.ErrDuplicateActiveSubscription
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cancelled, nil
}

// ListSubscriptions возвращает все подписки пользователя, упорядоченные по дате начала.
func (s *Storage) ListSubscriptions(ctx context.Context, userID string) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptions"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := uuid.Parse(userID); err != nil {
		return []*models.Subscription{}, nil
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY start_date, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []*models.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetActiveSubscription возвращает активную подписку пользователя.
func (s *Storage) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.GetActiveSubscription"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNoActiveSubscription)
	}

	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1 AND status = $2`, userID, models.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, models.ErrNoActiveSubscription))
	}
	return sub, nil
}

// UpdateActiveSubscription меняет автопродление и способ оплаты активной подписки.
func (s *Storage) UpdateActiveSubscription(ctx context.Context, userID string, upd models.SubscriptionUpdate, at time.Time) (*models.Subscription, error) {
	const op = "storage.UpdateActiveSubscription"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNoActiveSubscription)
	}

	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, `
		UPDATE subscriptions SET
		    auto_renew        = COALESCE($3, auto_renew),
		    payment_method_id = COALESCE($4, payment_method_id),
		    updated_at        = $5
		WHERE user_id = $1 AND status = $2
		RETURNING `+subscriptionColumns,
		userID, models.StatusActive, upd.AutoRenew, upd.PaymentMethodID, at))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, models.ErrNoActiveSubscription))
	}
	return sub, nil
}

// ListDueSubscriptions возвращает активные подписки, срок которых истёк к моменту now.
func (s *Storage) ListDueSubscriptions(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	const op = "storage.ListDueSubscriptions"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE status = $1 AND end_date IS NOT NULL AND end_date < $2
		ORDER BY end_date`, models.StatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ExpireSubscription переводит истёкшую подписку без автопродления в inactive
// и возвращает пользователя на бесплатный тариф. Возвращает false, если подписка
// уже не активна, продлевается автоматически или её срок ещё не истёк.
func (s *Storage) ExpireSubscription(ctx context.Context, subscriptionID string, now time.Time) (bool, error) {
	const op = "storage.ExpireSubscription"
	if err := checkCtx(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	expired := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// строка пользователя блокируется первой, как в ReplaceActiveSubscription
		var userID string
		err := tx.QueryRowContext(ctx, `
			SELECT u.id FROM users u
			JOIN subscriptions s ON s.user_id = u.id
			WHERE s.id = $1
			FOR UPDATE OF u`, subscriptionID).Scan(&userID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE subscriptions SET status = $2, updated_at = $3
			WHERE id = $1 AND status = $4 AND auto_renew = FALSE
			  AND end_date IS NOT NULL AND end_date < $3`,
			subscriptionID, models.StatusInactive, now, models.StatusActive)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE users SET tier = $2, updated_at = $3 WHERE id = $1`,
			userID, models.TierFree, now); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return expired, nil
}
