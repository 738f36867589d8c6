package models

import (
	"time"

	"pulso-backend/internal/streak"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// EnergyLevel is the user's self-assessed capacity for the day.
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "baja"
	EnergyMedium EnergyLevel = "media"
	EnergyHigh   EnergyLevel = "alta"
)

func (l EnergyLevel) Valid() bool {
	switch l {
	case EnergyLow, EnergyMedium, EnergyHigh:
		return true
	}
	return false
}

type Action struct {
	ID       string      `bson:"id" json:"id"`
	Text     string      `bson:"text" json:"text"`
	Energy   EnergyLevel `bson:"energy" json:"energy"`
	Category string      `bson:"category,omitempty" json:"category,omitempty"`
}

type SessionNote struct {
	Date string `bson:"date" json:"date"`
	Text string `bson:"text" json:"text"`
}

type Sounds struct {
	Enabled bool    `bson:"enabled" json:"enabled"`
	Volume  float64 `bson:"volume" json:"volume"`
}

// State is the per-user app document. The client owns it; the server
// stores whatever passes validation, keyed by UserID.
type State struct {
	ID                     bson.ObjectID       `bson:"_id,omitempty" json:"-"`
	UserID                 bson.ObjectID       `bson:"userId" json:"userId"`
	CurrentEnergyLevel     EnergyLevel         `bson:"currentEnergyLevel" json:"currentEnergyLevel"`
	CompletedActions       []string            `bson:"completedActions" json:"completedActions"`
	AllActions             []Action            `bson:"allActions" json:"allActions"`
	CurrentAction          *Action             `bson:"currentAction,omitempty" json:"currentAction"`
	Streak                 streak.Streak       `bson:"streak" json:"streak"`
	History                map[string][]string `bson:"history" json:"history"`
	ScheduledEnergyNextDay EnergyLevel         `bson:"scheduledEnergyNextDay,omitempty" json:"scheduledEnergyNextDay,omitempty"`
	SessionNotes           []SessionNote       `bson:"sessionNotes" json:"sessionNotes"`
	Sounds                 Sounds              `bson:"sounds" json:"sounds"`
	UserPlan               string              `bson:"userPlan" json:"userPlan"`
	LastActiveDate         string              `bson:"lastActiveDate,omitempty" json:"lastActiveDate,omitempty"`
	UpdatedAt              time.Time           `bson:"updatedAt" json:"updatedAt"`
}
