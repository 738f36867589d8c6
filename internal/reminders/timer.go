package reminders

import (
	"context"
	"sync"
	"time"

	"pulso-backend/internal/models"
	"pulso-backend/internal/notify"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// FireStore persists deliveries so a restart or a re-sync doesn't fire a
// reminder twice. repository.ReminderStore satisfies it.
type FireStore interface {
	MarkFired(ctx context.Context, userID bson.ObjectID, id string, firedAt time.Time, status models.ReminderStatus) error
}

// Timer keeps reminders in memory and fires the due ones on every tick.
// Lists come in through Load and Set; every delivery is written back
// through the FireStore when one is configured.
type Timer struct {
	mu       sync.Mutex
	byUser   map[string][]models.Reminder
	notifier notify.Notifier
	store    FireStore
	interval time.Duration
	now      func() time.Time
	log      *zap.SugaredLogger
}

// NewTimer builds a stopped timer. store may be nil, in which case fired
// state lives only in memory.
func NewTimer(notifier notify.Notifier, store FireStore, interval time.Duration, log *zap.SugaredLogger) *Timer {
	return &Timer{
		byUser:   make(map[string][]models.Reminder),
		notifier: notifier,
		store:    store,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

// Load replaces the tracked lists of every user found in list, grouping by
// owner. Used once at boot with the store's active reminders.
func (t *Timer) Load(list []models.Reminder) {
	grouped := make(map[string][]models.Reminder)
	for _, r := range list {
		key := r.UserID.Hex()
		grouped[key] = append(grouped[key], r)
	}
	for userID, reminders := range grouped {
		t.Set(userID, reminders)
	}
}

// Set replaces the reminders tracked for userID. A reminder that already
// fired here keeps its firedAt when the incoming copy lacks it and its date
// and time are unchanged, so a stale read can't re-arm it.
func (t *Timer) Set(userID string, list []models.Reminder) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := make(map[string]models.Reminder, len(t.byUser[userID]))
	for _, r := range t.byUser[userID] {
		prev[r.ID] = r
	}

	next := make([]models.Reminder, 0, len(list))
	for _, r := range list {
		if old, ok := prev[r.ID]; ok && keepsFired(old, r) {
			r.FiredAt = old.FiredAt
			r.Status = old.Status
		}
		next = append(next, r)
	}
	t.byUser[userID] = next
}

func keepsFired(old, incoming models.Reminder) bool {
	return old.FiredAt != nil &&
		incoming.FiredAt == nil &&
		incoming.Status == models.ReminderPending &&
		old.Date == incoming.Date &&
		old.Time == incoming.Time
}

func (t *Timer) Snapshot(userID string) []models.Reminder {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Reminder{}, t.byUser[userID]...)
}

// Start ticks until ctx is cancelled.
func (t *Timer) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Tick(ctx)
			}
		}
	}()
}

// Tick fires every due reminder and returns how many fired.
func (t *Timer) Tick(ctx context.Context) int {
	now := t.now()

	type due struct {
		userID   string
		text     string
		reminder models.Reminder
	}
	var fired []due

	t.mu.Lock()
	for userID, list := range t.byUser {
		for i := range list {
			if !IsDue(list[i], now) {
				continue
			}
			list[i] = markFired(list[i], now)
			fired = append(fired, due{userID: userID, text: message(list[i]), reminder: list[i]})
		}
	}
	t.mu.Unlock()

	// publish outside the lock; a slow channel must not block Set
	for _, f := range fired {
		if err := t.notifier.Publish(ctx, f.userID, f.text); err != nil {
			t.log.Errorf("Error publishing reminder: %v", err)
		}
		if t.store == nil {
			continue
		}
		r := f.reminder
		if err := t.store.MarkFired(ctx, r.UserID, r.ID, *r.FiredAt, r.Status); err != nil {
			t.log.Warnw("persisting fired reminder", "user_id", f.userID, "reminder_id", r.ID, "error", err)
		}
	}
	return len(fired)
}

// markFired stamps firedAt. Plain reminders are done after firing; alarm
// reminders stay pending and ring again every AlarmRepeat until the user
// acknowledges them.
func markFired(r models.Reminder, now time.Time) models.Reminder {
	fired := now
	r.FiredAt = &fired
	r.PostponedUntil = nil
	if r.AlarmEnabled {
		r.Status = models.ReminderPending
	} else {
		r.Status = models.ReminderDone
	}
	return r
}

func message(r models.Reminder) string {
	if r.AlarmEnabled {
		return "⏰ " + r.Text
	}
	return r.Text
}
