// Package appstate holds the reducer that drives a user's day: energy level,
// action selection, completion and day rollover. The HTTP layer only stores
// the resulting document; these rules are what clients run locally.
package appstate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pulso-backend/internal/models"
	"pulso-backend/internal/streak"
)

var (
	ErrInvalidEnergy  = errors.New("invalid energy level")
	ErrUnknownAction  = errors.New("unknown action")
	ErrInvalidVolume  = errors.New("sound volume must be between 0 and 1")
	ErrEmptyNote      = errors.New("note text is required")
	ErrInvalidHistory = errors.New("history keys must be YYYY-MM-DD dates")
	ErrUnknownEvent   = errors.New("unknown event")
)

const DefaultVolume = 0.5

// Default is the state a user starts with before the first save.
func Default() models.State {
	return models.State{
		CurrentEnergyLevel: models.EnergyMedium,
		CompletedActions:   []string{},
		AllActions:         []models.Action{},
		History:            map[string][]string{},
		SessionNotes:       []models.SessionNote{},
		Sounds:             models.Sounds{Enabled: true, Volume: DefaultVolume},
		UserPlan:           models.PlanFree,
	}
}

// EventType names a state transition.
type EventType string

const (
	SetEnergy      EventType = "setEnergy"
	ScheduleEnergy EventType = "scheduleEnergy"
	SelectAction   EventType = "selectAction"
	CompleteAction EventType = "completeAction"
	Rollover       EventType = "rollover"
	TogglePause    EventType = "togglePause"
	AddNote        EventType = "addNote"
	SetSounds      EventType = "setSounds"
)

// Event is one transition. Only the fields relevant to Type are read.
type Event struct {
	Type     EventType          `json:"type"`
	Energy   models.EnergyLevel `json:"energy,omitempty"`
	ActionID string             `json:"actionId,omitempty"`
	Text     string             `json:"text,omitempty"`
	Sounds   models.Sounds      `json:"sounds,omitempty"`
}

// Apply runs ev against s as of today and returns the new state. The input
// state's slices and maps are not shared with the result.
func Apply(s models.State, ev Event, today time.Time) (models.State, error) {
	s = clone(s)
	todayKey := streak.DayKey(today)

	switch ev.Type {
	case SetEnergy:
		if !ev.Energy.Valid() {
			return s, ErrInvalidEnergy
		}
		s.CurrentEnergyLevel = ev.Energy
		if s.CurrentAction != nil && s.CurrentAction.Energy != ev.Energy {
			s.CurrentAction = nil
		}

	case ScheduleEnergy:
		if ev.Energy != "" && !ev.Energy.Valid() {
			return s, ErrInvalidEnergy
		}
		s.ScheduledEnergyNextDay = ev.Energy

	case SelectAction:
		a := findAction(s.AllActions, ev.ActionID)
		if a == nil {
			return s, fmt.Errorf("%w: %q", ErrUnknownAction, ev.ActionID)
		}
		s.CurrentAction = a

	case CompleteAction:
		if findAction(s.AllActions, ev.ActionID) == nil {
			return s, fmt.Errorf("%w: %q", ErrUnknownAction, ev.ActionID)
		}
		s = rollover(s, todayKey)
		if !contains(s.CompletedActions, ev.ActionID) {
			s.CompletedActions = append(s.CompletedActions, ev.ActionID)
		}
		if !contains(s.History[todayKey], ev.ActionID) {
			s.History[todayKey] = append(s.History[todayKey], ev.ActionID)
		}
		s.Streak = streak.Update(s.Streak, today)
		s.CurrentAction = nil

	case Rollover:
		s = rollover(s, todayKey)

	case TogglePause:
		if s.Streak.Paused {
			s.Streak = streak.Resume(s.Streak)
		} else {
			s.Streak = streak.Pause(s.Streak)
		}

	case AddNote:
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			return s, ErrEmptyNote
		}
		s.SessionNotes = append(s.SessionNotes, models.SessionNote{Date: todayKey, Text: text})

	case SetSounds:
		if ev.Sounds.Volume < 0 || ev.Sounds.Volume > 1 {
			return s, ErrInvalidVolume
		}
		s.Sounds = ev.Sounds

	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}

	return s, nil
}

// rollover starts a new day: completions reset, and a scheduled energy
// level takes over exactly once.
func rollover(s models.State, todayKey string) models.State {
	if s.LastActiveDate == todayKey {
		return s
	}
	s.CompletedActions = []string{}
	s.CurrentAction = nil
	if s.ScheduledEnergyNextDay != "" {
		s.CurrentEnergyLevel = s.ScheduledEnergyNextDay
		s.ScheduledEnergyNextDay = ""
	}
	s.LastActiveDate = todayKey
	return s
}

// Suggest returns the first action matching the current energy level that
// has not been completed today, or nil.
func Suggest(s models.State) *models.Action {
	for i := range s.AllActions {
		a := s.AllActions[i]
		if a.Energy == s.CurrentEnergyLevel && !contains(s.CompletedActions, a.ID) {
			return &a
		}
	}
	return nil
}

// Normalize fills nil collections and defaults, then validates the fields
// the server is strict about. It is applied to every saved document.
func Normalize(s models.State) (models.State, error) {
	if s.CurrentEnergyLevel == "" {
		s.CurrentEnergyLevel = models.EnergyMedium
	}
	if !s.CurrentEnergyLevel.Valid() {
		return s, ErrInvalidEnergy
	}
	if s.ScheduledEnergyNextDay != "" && !s.ScheduledEnergyNextDay.Valid() {
		return s, ErrInvalidEnergy
	}
	for _, a := range s.AllActions {
		if a.Energy != "" && !a.Energy.Valid() {
			return s, fmt.Errorf("%w: action %q", ErrInvalidEnergy, a.ID)
		}
	}
	if s.Sounds.Volume < 0 || s.Sounds.Volume > 1 {
		return s, ErrInvalidVolume
	}
	for key := range s.History {
		if _, err := streak.ParseDay(key); err != nil {
			return s, fmt.Errorf("%w: %q", ErrInvalidHistory, key)
		}
	}

	if s.CompletedActions == nil {
		s.CompletedActions = []string{}
	}
	if s.AllActions == nil {
		s.AllActions = []models.Action{}
	}
	if s.History == nil {
		s.History = map[string][]string{}
	}
	if s.SessionNotes == nil {
		s.SessionNotes = []models.SessionNote{}
	}
	return s, nil
}

func clone(s models.State) models.State {
	s.CompletedActions = append([]string{}, s.CompletedActions...)
	s.AllActions = append([]models.Action{}, s.AllActions...)
	s.SessionNotes = append([]models.SessionNote{}, s.SessionNotes...)
	history := make(map[string][]string, len(s.History))
	for k, v := range s.History {
		history[k] = append([]string{}, v...)
	}
	s.History = history
	if s.CurrentAction != nil {
		a := *s.CurrentAction
		s.CurrentAction = &a
	}
	return s
}

func findAction(actions []models.Action, id string) *models.Action {
	for i := range actions {
		if actions[i].ID == id {
			a := actions[i]
			return &a
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
