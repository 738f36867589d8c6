package streak

import "time"

// DayLayout is the civil-day key used for lastDate and history keys.
const DayLayout = "2006-01-02"

// ResetAfterDays is the gap (in days) at which a streak starts over.
const ResetAfterDays = 7

// Streak is the consecutive-day engagement counter stored inside the user state.
type Streak struct {
	Current  int    `bson:"current" json:"current"`
	LastDate string `bson:"lastDate" json:"lastDate"`
	Paused   bool   `bson:"paused" json:"paused"`
}

// DayKey formats t as a civil-day key in t's own location.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay parses a civil-day key. The result is midnight UTC.
func ParseDay(key string) (time.Time, error) {
	return time.Parse(DayLayout, key)
}

// DaysBetween returns the number of calendar days from a to b.
// Both are normalized to their civil date, so DST shifts don't matter.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Update applies the first activity of the civil day of today to s and
// returns the resulting streak. s is never modified in place.
//
//	paused        -> unchanged
//	no lastDate   -> 1
//	same day      -> unchanged
//	1 day later   -> current+1
//	2..6 days     -> current kept, lastDate moved
//	7+ days       -> 1
func Update(s Streak, today time.Time) Streak {
	if s.Paused {
		return s
	}

	todayKey := DayKey(today)
	if s.LastDate == "" {
		return Streak{Current: 1, LastDate: todayKey}
	}

	last, err := ParseDay(s.LastDate)
	if err != nil {
		return Streak{Current: 1, LastDate: todayKey}
	}

	diff := DaysBetween(last, today)
	switch {
	case diff <= 0:
		// same day, or a lastDate from the future after a clock change
		return s
	case diff == 1:
		s.Current++
	case diff < ResetAfterDays:
		// grace period: keep the count
	default:
		s.Current = 1
	}
	s.LastDate = todayKey
	return s
}

// Pause freezes the streak; Update becomes a no-op until Resume.
func Pause(s Streak) Streak {
	s.Paused = true
	return s
}

// Resume lifts a pause.
func Resume(s Streak) Streak {
	s.Paused = false
	return s
}
