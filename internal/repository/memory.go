package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pulso-backend/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// NewMemoryStore returns a process-local Store. Data is lost on restart;
// it backs tests and STORE_BACKEND=memory.
func NewMemoryStore() *Store {
	return &Store{
		Users:         &memoryUsers{byID: map[bson.ObjectID]models.User{}},
		ResetTokens:   &memoryResetTokens{},
		States:        &memoryStates{byUser: map[bson.ObjectID]models.State{}},
		Reminders:     &memoryReminders{byUser: map[bson.ObjectID][]models.Reminder{}},
		Subscriptions: &memorySubscriptions{byUser: map[bson.ObjectID]models.Subscription{}},
	}
}

type memoryUsers struct {
	mu   sync.Mutex
	byID map[bson.ObjectID]models.User
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range m.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memoryUsers) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, u := range m.byID {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	now := time.Now()
	user.ID = bson.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.byID[user.ID] = *user
	return nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id bson.ObjectID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	m.byID[id] = u
	return nil
}

type memoryResetTokens struct {
	mu     sync.Mutex
	tokens []models.PasswordResetToken
}

func (m *memoryResetTokens) Create(_ context.Context, token *models.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token.ID = bson.NewObjectID()
	token.CreatedAt = time.Now()
	m.tokens = append(m.tokens, *token)
	return nil
}

func (m *memoryResetTokens) InvalidateForUser(_ context.Context, userID bson.ObjectID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tokens {
		if m.tokens[i].UserID == userID && !m.tokens[i].IsUsed {
			m.tokens[i].IsUsed = true
			m.tokens[i].UsedAt = &now
		}
	}
	return nil
}

func (m *memoryResetTokens) Consume(_ context.Context, tokenHash string, now time.Time) (*models.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tokens {
		t := &m.tokens[i]
		if t.TokenHash != tokenHash || !t.Usable(now) {
			continue
		}
		t.IsUsed = true
		t.UsedAt = &now
		out := *t
		return &out, nil
	}
	return nil, nil
}

type memoryStates struct {
	mu     sync.Mutex
	byUser map[bson.ObjectID]models.State
}

func (m *memoryStates) FindByUserID(_ context.Context, userID bson.ObjectID) (*models.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byUser[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memoryStates) Upsert(_ context.Context, state *models.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state.UpdatedAt = time.Now()
	m.byUser[state.UserID] = *state
	return nil
}

func (m *memoryStates) SetPlan(_ context.Context, userID bson.ObjectID, plan string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.byUser[userID]
	s.UserID = userID
	s.UserPlan = plan
	s.UpdatedAt = time.Now()
	m.byUser[userID] = s
	return nil
}

type memoryReminders struct {
	mu     sync.Mutex
	byUser map[bson.ObjectID][]models.Reminder
}

func (m *memoryReminders) ListByUser(_ context.Context, userID bson.ObjectID) ([]models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Reminder{}, m.byUser[userID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (m *memoryReminders) FindByID(_ context.Context, userID bson.ObjectID, id string) (*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byUser[userID] {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memoryReminders) Create(_ context.Context, reminder *models.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byUser[reminder.UserID] {
		if r.ID == reminder.ID {
			return ErrDuplicateReminder
		}
	}
	now := time.Now()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	m.byUser[reminder.UserID] = append(m.byUser[reminder.UserID], *reminder)
	return nil
}

func (m *memoryReminders) Update(_ context.Context, reminder *models.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byUser[reminder.UserID]
	for i := range list {
		if list[i].ID == reminder.ID {
			reminder.UpdatedAt = time.Now()
			list[i] = *reminder
			return nil
		}
	}
	return ErrReminderNotFound
}

func (m *memoryReminders) Delete(_ context.Context, userID bson.ObjectID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byUser[userID]
	for i := range list {
		if list[i].ID == id {
			m.byUser[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrReminderNotFound
}

func (m *memoryReminders) ListActive(_ context.Context) ([]models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Reminder{}
	for _, list := range m.byUser {
		for _, r := range list {
			if r.Status == models.ReminderPending || r.Status == models.ReminderPostponed {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (m *memoryReminders) MarkFired(_ context.Context, userID bson.ObjectID, id string, firedAt time.Time, status models.ReminderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byUser[userID]
	for i := range list {
		if list[i].ID == id {
			fired := firedAt
			list[i].FiredAt = &fired
			list[i].Status = status
			list[i].PostponedUntil = nil
			list[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrReminderNotFound
}

type memorySubscriptions struct {
	mu     sync.Mutex
	byUser map[bson.ObjectID]models.Subscription
}

func (m *memorySubscriptions) FindByUserID(_ context.Context, userID bson.ObjectID) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byUser[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySubscriptions) Upsert(_ context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub.UpdatedAt = time.Now()
	m.byUser[sub.UserID] = *sub
	return nil
}
