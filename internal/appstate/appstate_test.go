package appstate

import (
	"testing"
	"time"

	"pulso-backend/internal/models"
	"pulso-backend/internal/streak"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mon = time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	tue = mon.AddDate(0, 0, 1)
)

func sampleState() models.State {
	s := Default()
	s.AllActions = []models.Action{
		{ID: "walk", Text: "Camina 5 minutos", Energy: models.EnergyMedium},
		{ID: "water", Text: "Bebe agua", Energy: models.EnergyLow},
		{ID: "tidy", Text: "Ordena el escritorio", Energy: models.EnergyMedium},
		{ID: "run", Text: "Sal a correr", Energy: models.EnergyHigh},
	}
	return s
}

func TestCompleteActionUpdatesHistoryAndStreak(t *testing.T) {
	s, err := Apply(sampleState(), Event{Type: CompleteAction, ActionID: "walk"}, mon)
	require.NoError(t, err)

	assert.Equal(t, []string{"walk"}, s.CompletedActions)
	assert.Equal(t, []string{"walk"}, s.History["2026-03-09"])
	assert.Equal(t, streak.Streak{Current: 1, LastDate: "2026-03-09"}, s.Streak)

	// second completion the same day does not bump the streak
	s, err = Apply(s, Event{Type: CompleteAction, ActionID: "tidy"}, mon)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Streak.Current)
	assert.Equal(t, []string{"walk", "tidy"}, s.History["2026-03-09"])

	// idempotent
	s, err = Apply(s, Event{Type: CompleteAction, ActionID: "tidy"}, mon)
	require.NoError(t, err)
	assert.Len(t, s.CompletedActions, 2)

	s, err = Apply(s, Event{Type: CompleteAction, ActionID: "walk"}, tue)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Streak.Current)
	assert.Equal(t, []string{"walk"}, s.CompletedActions)
}

func TestCompleteUnknownAction(t *testing.T) {
	_, err := Apply(sampleState(), Event{Type: CompleteAction, ActionID: "nope"}, mon)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestRolloverAppliesScheduledEnergyOnce(t *testing.T) {
	s := sampleState()
	s.LastActiveDate = "2026-03-09"
	s.CompletedActions = []string{"walk"}

	s, err := Apply(s, Event{Type: ScheduleEnergy, Energy: models.EnergyHigh}, mon)
	require.NoError(t, err)
	assert.Equal(t, models.EnergyMedium, s.CurrentEnergyLevel)

	// same day: nothing happens
	s, err = Apply(s, Event{Type: Rollover}, mon)
	require.NoError(t, err)
	assert.Equal(t, models.EnergyMedium, s.CurrentEnergyLevel)
	assert.Equal(t, []string{"walk"}, s.CompletedActions)

	s, err = Apply(s, Event{Type: Rollover}, tue)
	require.NoError(t, err)
	assert.Equal(t, models.EnergyHigh, s.CurrentEnergyLevel)
	assert.Empty(t, s.ScheduledEnergyNextDay)
	assert.Empty(t, s.CompletedActions)
	assert.Equal(t, "2026-03-10", s.LastActiveDate)

	s, err = Apply(s, Event{Type: SetEnergy, Energy: models.EnergyLow}, tue)
	require.NoError(t, err)
	s, err = Apply(s, Event{Type: Rollover}, tue.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, models.EnergyLow, s.CurrentEnergyLevel)
}

func TestSetEnergyClearsMismatchedSelection(t *testing.T) {
	s, err := Apply(sampleState(), Event{Type: SelectAction, ActionID: "walk"}, mon)
	require.NoError(t, err)
	require.NotNil(t, s.CurrentAction)

	s, err = Apply(s, Event{Type: SetEnergy, Energy: models.EnergyMedium}, mon)
	require.NoError(t, err)
	assert.NotNil(t, s.CurrentAction)

	s, err = Apply(s, Event{Type: SetEnergy, Energy: models.EnergyHigh}, mon)
	require.NoError(t, err)
	assert.Nil(t, s.CurrentAction)

	_, err = Apply(s, Event{Type: SetEnergy, Energy: "max"}, mon)
	assert.ErrorIs(t, err, ErrInvalidEnergy)
}

func TestTogglePauseFreezesStreak(t *testing.T) {
	s, err := Apply(sampleState(), Event{Type: CompleteAction, ActionID: "walk"}, mon)
	require.NoError(t, err)
	s, err = Apply(s, Event{Type: TogglePause}, mon)
	require.NoError(t, err)
	assert.True(t, s.Streak.Paused)

	s, err = Apply(s, Event{Type: CompleteAction, ActionID: "walk"}, tue)
	require.NoError(t, err)
	assert.Equal(t, streak.Streak{Current: 1, LastDate: "2026-03-09", Paused: true}, s.Streak)
}

func TestSuggest(t *testing.T) {
	s := sampleState()
	a := Suggest(s)
	require.NotNil(t, a)
	assert.Equal(t, "walk", a.ID)

	s.CompletedActions = []string{"walk"}
	assert.Equal(t, "tidy", Suggest(s).ID)

	s.CompletedActions = []string{"walk", "tidy"}
	assert.Nil(t, Suggest(s))
}

func TestApplyDoesNotAliasInput(t *testing.T) {
	in := sampleState()
	_, err := Apply(in, Event{Type: CompleteAction, ActionID: "walk"}, mon)
	require.NoError(t, err)
	assert.Empty(t, in.CompletedActions)
	assert.Empty(t, in.History)
}

func TestNotesAndSounds(t *testing.T) {
	s, err := Apply(sampleState(), Event{Type: AddNote, Text: "  me costó arrancar "}, mon)
	require.NoError(t, err)
	assert.Equal(t, []models.SessionNote{{Date: "2026-03-09", Text: "me costó arrancar"}}, s.SessionNotes)

	_, err = Apply(s, Event{Type: AddNote, Text: "   "}, mon)
	assert.ErrorIs(t, err, ErrEmptyNote)

	s, err = Apply(s, Event{Type: SetSounds, Sounds: models.Sounds{Enabled: false, Volume: 0.2}}, mon)
	require.NoError(t, err)
	assert.Equal(t, models.Sounds{Enabled: false, Volume: 0.2}, s.Sounds)

	_, err = Apply(s, Event{Type: SetSounds, Sounds: models.Sounds{Volume: 1.5}}, mon)
	assert.ErrorIs(t, err, ErrInvalidVolume)

	_, err = Apply(s, Event{Type: "dance"}, mon)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestNormalize(t *testing.T) {
	s, err := Normalize(models.State{})
	require.NoError(t, err)
	assert.Equal(t, models.EnergyMedium, s.CurrentEnergyLevel)
	assert.NotNil(t, s.CompletedActions)
	assert.NotNil(t, s.History)

	_, err = Normalize(models.State{CurrentEnergyLevel: "extreme"})
	assert.ErrorIs(t, err, ErrInvalidEnergy)

	_, err = Normalize(models.State{ScheduledEnergyNextDay: "tomorrow"})
	assert.ErrorIs(t, err, ErrInvalidEnergy)

	_, err = Normalize(models.State{History: map[string][]string{"ayer": {"walk"}}})
	assert.ErrorIs(t, err, ErrInvalidHistory)

	_, err = Normalize(models.State{Sounds: models.Sounds{Volume: -0.1}})
	assert.ErrorIs(t, err, ErrInvalidVolume)
}
