package repository

import (
	"context"
	"errors"
	"time"

	"pulso-backend/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateReminder = errors.New("reminder already exists")
	ErrReminderNotFound  = errors.New("reminder not found")
)

// Finders return (nil, nil) when nothing matches.

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string) error
}

type ResetTokenStore interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	// InvalidateForUser marks every unused token of the user as used.
	InvalidateForUser(ctx context.Context, userID bson.ObjectID, now time.Time) error
	// Consume atomically marks the token with this hash used and returns it,
	// provided it was unused and unexpired at now.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*models.PasswordResetToken, error)
}

type StateStore interface {
	FindByUserID(ctx context.Context, userID bson.ObjectID) (*models.State, error)
	Upsert(ctx context.Context, state *models.State) error
	SetPlan(ctx context.Context, userID bson.ObjectID, plan string) error
}

type ReminderStore interface {
	ListByUser(ctx context.Context, userID bson.ObjectID) ([]models.Reminder, error)
	FindByID(ctx context.Context, userID bson.ObjectID, id string) (*models.Reminder, error)
	Create(ctx context.Context, reminder *models.Reminder) error
	Update(ctx context.Context, reminder *models.Reminder) error
	Delete(ctx context.Context, userID bson.ObjectID, id string) error
	// ListActive returns every pending or postponed reminder of every user.
	ListActive(ctx context.Context) ([]models.Reminder, error)
	// MarkFired records a delivery: firedAt and the resulting status, with
	// postponedUntil cleared. Other fields are left alone.
	MarkFired(ctx context.Context, userID bson.ObjectID, id string, firedAt time.Time, status models.ReminderStatus) error
}

type SubscriptionStore interface {
	FindByUserID(ctx context.Context, userID bson.ObjectID) (*models.Subscription, error)
	Upsert(ctx context.Context, sub *models.Subscription) error
}

// Store bundles the collections the API works with.
type Store struct {
	Users         UserStore
	ResetTokens   ResetTokenStore
	States        StateStore
	Reminders     ReminderStore
	Subscriptions SubscriptionStore
}
