package reminders

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pulso-backend/internal/models"
	"pulso-backend/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

type firedCall struct {
	userID  bson.ObjectID
	id      string
	firedAt time.Time
	status  models.ReminderStatus
}

type fakeFireStore struct {
	mu    sync.Mutex
	calls []firedCall
}

func (f *fakeFireStore) MarkFired(_ context.Context, userID bson.ObjectID, id string, firedAt time.Time, status models.ReminderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, firedCall{userID: userID, id: id, firedAt: firedAt, status: status})
	return nil
}

func newTestTimer(store FireStore, now *time.Time) (*Timer, *notify.Recorder) {
	rec := &notify.Recorder{}
	timer := NewTimer(rec, store, time.Minute, zap.NewNop().Sugar())
	timer.now = func() time.Time { return *now }
	return timer, rec
}

func strPtr(s string) *string { return &s }

func statusPtr(s models.ReminderStatus) *models.ReminderStatus { return &s }

func TestNew(t *testing.T) {
	r, err := New(CreateInput{Text: "  Llamar a mamá ", Date: "2026-03-10", Time: "18:30", AlarmEnabled: true})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "Llamar a mamá", r.Text)
	assert.Equal(t, models.ReminderPending, r.Status)
	assert.True(t, r.AlarmEnabled)

	r, err = New(CreateInput{ID: "client-1", Text: "x", Date: "2026-03-10", Time: "07:00"})
	require.NoError(t, err)
	assert.Equal(t, "client-1", r.ID)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"no text", CreateInput{Date: "2026-03-10", Time: "07:00"}, ErrTextRequired},
		{"long text", CreateInput{Text: strings.Repeat("a", 501), Date: "2026-03-10", Time: "07:00"}, ErrTextTooLong},
		{"bad date", CreateInput{Text: "x", Date: "10/03/2026", Time: "07:00"}, ErrInvalidDate},
		{"bad time", CreateInput{Text: "x", Date: "2026-03-10", Time: "7pm"}, ErrInvalidTime},
		{"time out of range", CreateInput{Text: "x", Date: "2026-03-10", Time: "25:00"}, ErrInvalidTime},
		{"long id", CreateInput{ID: strings.Repeat("i", 65), Text: "x", Date: "2026-03-10", Time: "07:00"}, ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestApplyPatch(t *testing.T) {
	base, err := New(CreateInput{ID: "r1", Text: "x", Date: "2026-03-10", Time: "07:00"})
	require.NoError(t, err)

	got, err := ApplyPatch(base, Patch{Text: strPtr("y"), Status: statusPtr(models.ReminderDone)})
	require.NoError(t, err)
	assert.Equal(t, "y", got.Text)
	assert.Equal(t, models.ReminderDone, got.Status)
	assert.Equal(t, "x", base.Text)

	_, err = ApplyPatch(base, Patch{Status: statusPtr("snoozed")})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ApplyPatch(base, Patch{Status: statusPtr(models.ReminderPostponed)})
	assert.ErrorIs(t, err, ErrPostponeNoUntil)

	until := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	got, err = ApplyPatch(base, Patch{Status: statusPtr(models.ReminderPostponed), PostponedUntil: &until})
	require.NoError(t, err)
	assert.Equal(t, &until, got.PostponedUntil)

	got, err = ApplyPatch(got, Patch{Status: statusPtr(models.ReminderPending)})
	require.NoError(t, err)
	assert.Nil(t, got.PostponedUntil)

	_, err = ApplyPatch(base, Patch{Text: strPtr("   ")})
	assert.ErrorIs(t, err, ErrTextRequired)
}

func TestIsDue(t *testing.T) {
	r := models.Reminder{Text: "x", Date: "2026-03-10", Time: "07:00", Status: models.ReminderPending}
	at := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)

	assert.False(t, IsDue(r, at.Add(-time.Minute)))
	assert.True(t, IsDue(r, at))
	assert.True(t, IsDue(r, at.Add(time.Hour)))

	fired := at
	r.FiredAt = &fired
	assert.False(t, IsDue(r, at.Add(time.Hour)))

	r = Postpone(r, at, 10*time.Minute)
	assert.Equal(t, models.ReminderPostponed, r.Status)
	assert.Nil(t, r.FiredAt)
	assert.False(t, IsDue(r, at.Add(9*time.Minute)))
	assert.True(t, IsDue(r, at.Add(10*time.Minute)))

	done := models.Reminder{Date: "2026-03-10", Time: "07:00", Status: models.ReminderDone}
	assert.False(t, IsDue(done, at.Add(time.Hour)))
}

func TestIsDueAlarmRepeats(t *testing.T) {
	rang := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
	alarm := models.Reminder{Date: "2026-03-10", Time: "07:00", Status: models.ReminderPending, AlarmEnabled: true, FiredAt: &rang}

	assert.False(t, IsDue(alarm, rang.Add(AlarmRepeat-time.Second)))
	assert.True(t, IsDue(alarm, rang.Add(AlarmRepeat)))

	alarm.Status = models.ReminderDone
	assert.False(t, IsDue(alarm, rang.Add(time.Hour)))
}

func TestTimerFires(t *testing.T) {
	now := time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)
	timer, rec := newTestTimer(nil, &now)

	timer.Set("u1", []models.Reminder{
		{ID: "a", Text: "Bebe agua", Date: "2026-03-10", Time: "07:00", Status: models.ReminderPending},
		{ID: "b", Text: "Medicina", Date: "2026-03-10", Time: "07:15", Status: models.ReminderPending, AlarmEnabled: true},
		{ID: "c", Text: "Luego", Date: "2026-03-10", Time: "09:00", Status: models.ReminderPending},
	})

	assert.Equal(t, 2, timer.Tick(context.Background()))
	assert.Equal(t, 0, timer.Tick(context.Background()))

	msgs := rec.Messages()
	require.Len(t, msgs, 2)
	assert.ElementsMatch(t, []string{"Bebe agua", "⏰ Medicina"}, []string{msgs[0].Text, msgs[1].Text})

	snap := timer.Snapshot("u1")
	assert.Equal(t, models.ReminderDone, snap[0].Status)
	assert.Equal(t, models.ReminderPending, snap[1].Status)
	assert.NotNil(t, snap[1].FiredAt)
	assert.Nil(t, snap[2].FiredAt)

	// c comes due and the unacknowledged alarm rings again; a stays done
	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, timer.Tick(context.Background()))
	msgs = rec.Messages()
	assert.ElementsMatch(t, []string{"Luego", "⏰ Medicina"}, []string{msgs[2].Text, msgs[3].Text})
}

func TestTimerResyncDoesNotRefire(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 5, 0, 0, time.UTC)
	timer, rec := newTestTimer(nil, &now)
	stored := models.Reminder{ID: "a", Text: "Estirar", Date: "2026-03-10", Time: "10:00", Status: models.ReminderPending}

	timer.Set("u1", []models.Reminder{stored})
	assert.Equal(t, 1, timer.Tick(context.Background()))

	// the handler re-syncs from a store copy that hasn't seen the delivery
	later := models.Reminder{ID: "b", Text: "Cenar", Date: "2026-03-10", Time: "21:00", Status: models.ReminderPending}
	timer.Set("u1", []models.Reminder{stored, later})
	now = now.Add(time.Minute)
	assert.Equal(t, 0, timer.Tick(context.Background()))
	assert.Len(t, rec.Messages(), 1)

	// moving the reminder re-arms it
	moved := stored
	moved.Time = "10:06"
	timer.Set("u1", []models.Reminder{moved, later})
	assert.Equal(t, 1, timer.Tick(context.Background()))
}

func TestTimerAlarmRingsUntilAcknowledged(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	timer, rec := newTestTimer(nil, &now)
	alarm := models.Reminder{ID: "m", Text: "Medicina", Date: "2026-03-10", Time: "08:00", Status: models.ReminderPending, AlarmEnabled: true}
	timer.Set("u1", []models.Reminder{alarm})

	assert.Equal(t, 1, timer.Tick(context.Background()))
	now = now.Add(30 * time.Second)
	assert.Equal(t, 0, timer.Tick(context.Background()))
	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, timer.Tick(context.Background()))
	now = now.Add(AlarmRepeat)
	assert.Equal(t, 1, timer.Tick(context.Background()))
	assert.Len(t, rec.Messages(), 3)

	acked := timer.Snapshot("u1")[0]
	acked.Status = models.ReminderDone
	timer.Set("u1", []models.Reminder{acked})
	now = now.Add(10 * AlarmRepeat)
	assert.Equal(t, 0, timer.Tick(context.Background()))
}

func TestTimerPersistsFired(t *testing.T) {
	now := time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)
	store := &fakeFireStore{}
	timer, _ := newTestTimer(store, &now)
	owner := bson.NewObjectID()

	timer.Load([]models.Reminder{
		{UserID: owner, ID: "a", Text: "Bebe agua", Date: "2026-03-10", Time: "07:00", Status: models.ReminderPending},
		{UserID: owner, ID: "b", Text: "Medicina", Date: "2026-03-10", Time: "07:10", Status: models.ReminderPending, AlarmEnabled: true},
	})
	require.Len(t, timer.Snapshot(owner.Hex()), 2)

	assert.Equal(t, 2, timer.Tick(context.Background()))
	require.Len(t, store.calls, 2)

	byID := map[string]firedCall{}
	for _, c := range store.calls {
		byID[c.id] = c
	}
	assert.Equal(t, owner, byID["a"].userID)
	assert.Equal(t, models.ReminderDone, byID["a"].status)
	assert.Equal(t, models.ReminderPending, byID["b"].status)
	assert.True(t, byID["b"].firedAt.Equal(now))
}

func TestTimerStartStops(t *testing.T) {
	rec := &notify.Recorder{}
	timer := NewTimer(rec, nil, 5*time.Millisecond, zap.NewNop().Sugar())
	timer.Set("u1", []models.Reminder{
		{ID: "a", Text: "ya", Date: "2020-01-01", Time: "00:00", Status: models.ReminderPending},
	})

	ctx, cancel := context.WithCancel(context.Background())
	timer.Start(ctx)
	assert.Eventually(t, func() bool { return len(rec.Messages()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
}
