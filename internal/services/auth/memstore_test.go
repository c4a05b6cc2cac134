package services_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jassenbt/fx-compass/internal/models"
)

// memStore хранилище в памяти с семантикой Postgres-репозитория:
// уникальность email и username, одна активная подписка, смена тарифа в той же операции.
type memStore struct {
	mu    sync.Mutex
	users map[string]models.User
	subs  []models.Subscription
}

func newMemStore() *memStore {
	return &memStore{users: map[string]models.User{}}
}

func (s *memStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return models.ErrDuplicateEmail
		}
	}
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return models.ErrDuplicateUsername
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *memStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &u, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (s *memStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.LastLogin = &at
	s.users[id] = u
	return nil
}

func (s *memStore) UpdateProfile(_ context.Context, id string, upd models.ProfileUpdate, at time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	if upd.FirstName != nil {
		u.FirstName = upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = upd.LastName
	}
	if upd.Timezone != nil {
		u.Timezone = *upd.Timezone
	}
	if upd.Preferences != nil {
		u.Preferences = upd.Preferences
	}
	u.UpdatedAt = at
	s.users[id] = u
	return &u, nil
}

func (s *memStore) SetUserActive(_ context.Context, id string, active bool, at time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	u.IsActive = active
	u.UpdatedAt = at
	s.users[id] = u
	return &u, nil
}

func (s *memStore) ReplaceActiveSubscription(_ context.Context, sub *models.Subscription) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[sub.UserID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	var cancelled *models.Subscription
	for i := range s.subs {
		if s.subs[i].UserID == sub.UserID && s.subs[i].Status == models.StatusActive {
			s.subs[i].Status = models.StatusCancelled
			s.subs[i].UpdatedAt = sub.CreatedAt
			c := s.subs[i]
			cancelled = &c
		}
	}
	s.subs = append(s.subs, *sub)
	u.Tier = sub.Tier
	s.users[u.ID] = u
	return cancelled, nil
}

func (s *memStore) ListSubscriptions(_ context.Context, userID string) ([]*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []*models.Subscription{}
	for _, sub := range s.subs {
		if sub.UserID == userID {
			sub := sub
			res = append(res, &sub)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].StartDate.Before(res[j].StartDate) })
	return res, nil
}

func (s *memStore) GetActiveSubscription(_ context.Context, userID string) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.UserID == userID && sub.Status == models.StatusActive {
			return &sub, nil
		}
	}
	return nil, models.ErrNoActiveSubscription
}

func (s *memStore) UpdateActiveSubscription(_ context.Context, userID string, upd models.SubscriptionUpdate, at time.Time) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subs {
		if s.subs[i].UserID != userID || s.subs[i].Status != models.StatusActive {
			continue
		}
		if upd.AutoRenew != nil {
			s.subs[i].AutoRenew = *upd.AutoRenew
		}
		if upd.PaymentMethodID != nil {
			s.subs[i].PaymentMethodID = upd.PaymentMethodID
		}
		s.subs[i].UpdatedAt = at
		sub := s.subs[i]
		return &sub, nil
	}
	return nil, models.ErrNoActiveSubscription
}

func (s *memStore) ListDueSubscriptions(_ context.Context, now time.Time) ([]*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []*models.Subscription{}
	for _, sub := range s.subs {
		if sub.Status == models.StatusActive && sub.EndDate != nil && sub.EndDate.Before(now) {
			sub := sub
			res = append(res, &sub)
		}
	}
	return res, nil
}

func (s *memStore) ExpireSubscription(_ context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subs {
		if s.subs[i].ID != id || s.subs[i].Status != models.StatusActive || s.subs[i].AutoRenew {
			continue
		}
		s.subs[i].Status = models.StatusInactive
		s.subs[i].UpdatedAt = now
		u := s.users[s.subs[i].UserID]
		u.Tier = models.TierFree
		s.users[u.ID] = u
		return true, nil
	}
	return false, nil
}
