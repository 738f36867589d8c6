package reminders

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"pulso-backend/internal/models"

	"github.com/google/uuid"
)

const (
	dateLayout    = "2006-01-02"
	timeLayout    = "15:04"
	maxTextLength = 500
	maxIDLength   = 64

	// AlarmRepeat is how often an unacknowledged alarm rings again.
	AlarmRepeat = time.Minute
)

var (
	ErrTextRequired    = errors.New("text is required")
	ErrTextTooLong     = errors.New("text must be at most 500 characters")
	ErrInvalidDate     = errors.New("date must be YYYY-MM-DD")
	ErrInvalidTime     = errors.New("time must be HH:MM")
	ErrInvalidStatus   = errors.New("status must be pending, done or postponed")
	ErrInvalidID       = errors.New("id must be at most 64 characters")
	ErrPostponeNoUntil = errors.New("postponedUntil is required when status is postponed")
)

// CreateInput is the POST body.
type CreateInput struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	AlarmEnabled bool   `json:"alarmEnabled"`
}

// Patch is the PATCH body; nil fields are left alone.
type Patch struct {
	Text           *string                `json:"text"`
	Date           *string                `json:"date"`
	Time           *string                `json:"time"`
	AlarmEnabled   *bool                  `json:"alarmEnabled"`
	Status         *models.ReminderStatus `json:"status"`
	FiredAt        *time.Time             `json:"firedAt"`
	PostponedUntil *time.Time             `json:"postponedUntil"`
}

// New validates in and builds a pending reminder. A missing ID gets a uuid.
func New(in CreateInput) (models.Reminder, error) {
	r := models.Reminder{
		ID:           strings.TrimSpace(in.ID),
		Text:         strings.TrimSpace(in.Text),
		Date:         strings.TrimSpace(in.Date),
		Time:         strings.TrimSpace(in.Time),
		AlarmEnabled: in.AlarmEnabled,
		Status:       models.ReminderPending,
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if len(r.ID) > maxIDLength {
		return models.Reminder{}, ErrInvalidID
	}
	if err := validateFields(r); err != nil {
		return models.Reminder{}, err
	}
	return r, nil
}

// ApplyPatch returns r with p applied, or a validation error.
func ApplyPatch(r models.Reminder, p Patch) (models.Reminder, error) {
	if p.Text != nil {
		r.Text = strings.TrimSpace(*p.Text)
	}
	if p.Date != nil {
		r.Date = strings.TrimSpace(*p.Date)
	}
	if p.Time != nil {
		r.Time = strings.TrimSpace(*p.Time)
	}
	if p.AlarmEnabled != nil {
		r.AlarmEnabled = *p.AlarmEnabled
	}
	if p.FiredAt != nil {
		r.FiredAt = p.FiredAt
	}
	if p.PostponedUntil != nil {
		r.PostponedUntil = p.PostponedUntil
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return r, ErrInvalidStatus
		}
		r.Status = *p.Status
		if r.Status == models.ReminderPending {
			r.PostponedUntil = nil
		}
	}
	if r.Status == models.ReminderPostponed && r.PostponedUntil == nil {
		return r, ErrPostponeNoUntil
	}
	if err := validateFields(r); err != nil {
		return r, err
	}
	return r, nil
}

func validateFields(r models.Reminder) error {
	if r.Text == "" {
		return ErrTextRequired
	}
	if utf8.RuneCountInString(r.Text) > maxTextLength {
		return ErrTextTooLong
	}
	if _, err := time.Parse(dateLayout, r.Date); err != nil {
		return ErrInvalidDate
	}
	if _, err := time.Parse(timeLayout, r.Time); err != nil {
		return ErrInvalidTime
	}
	return nil
}

// DueAt is the wall-clock moment of the reminder's date and time in loc.
func DueAt(r models.Reminder, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout+" "+timeLayout, r.Date+" "+r.Time, loc)
}

// IsDue reports whether r should fire at now. A pending reminder fires at
// its date and time; after that only an alarm fires again, AlarmRepeat after
// the last ring, until its status changes. Postponed ones fire when
// postponedUntil has passed.
func IsDue(r models.Reminder, now time.Time) bool {
	switch r.Status {
	case models.ReminderPending:
		if r.FiredAt != nil {
			return r.AlarmEnabled && now.Sub(*r.FiredAt) >= AlarmRepeat
		}
		at, err := DueAt(r, now.Location())
		return err == nil && !at.After(now)
	case models.ReminderPostponed:
		return r.PostponedUntil != nil && !r.PostponedUntil.After(now)
	}
	return false
}

// Postpone moves r to postponed until now+d and clears firedAt so it can
// fire again.
func Postpone(r models.Reminder, now time.Time, d time.Duration) models.Reminder {
	until := now.Add(d)
	r.Status = models.ReminderPostponed
	r.PostponedUntil = &until
	r.FiredAt = nil
	return r
}
