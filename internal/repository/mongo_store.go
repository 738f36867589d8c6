package repository

import "context"

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// NewMongoStore wires the collection-backed repositories. database.Connect
// must have been called first.
func NewMongoStore() *Store {
	return &Store{
		Users:         NewUserRepo(),
		ResetTokens:   NewResetTokenRepo(),
		States:        NewStateRepo(),
		Reminders:     NewReminderRepo(),
		Subscriptions: NewSubscriptionRepo(),
	}
}

// EnsureIndexes creates indexes for every store that manages its own. It
// keeps going after a failure and reports each error with the collection name.
func (s *Store) EnsureIndexes(ctx context.Context, onError func(name string, err error)) {
	named := map[string]any{
		"users":                 s.Users,
		"password_reset_tokens": s.ResetTokens,
		"states":                s.States,
		"reminders":             s.Reminders,
		"subscriptions":         s.Subscriptions,
	}
	for name, repo := range named {
		ix, ok := repo.(indexer)
		if !ok {
			continue
		}
		if err := ix.EnsureIndexes(ctx); err != nil && onError != nil {
			onError(name, err)
		}
	}
}
