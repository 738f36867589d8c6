package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderDone      ReminderStatus = "done"
	ReminderPostponed ReminderStatus = "postponed"
)

func (s ReminderStatus) Valid() bool {
	switch s {
	case ReminderPending, ReminderDone, ReminderPostponed:
		return true
	}
	return false
}

// Reminder is addressed by the client-chosen ID, unique per user.
type Reminder struct {
	UserID         bson.ObjectID  `bson:"userId" json:"userId"`
	ID             string         `bson:"id" json:"id"`
	Text           string         `bson:"text" json:"text"`
	Date           string         `bson:"date" json:"date"`
	Time           string         `bson:"time" json:"time"`
	AlarmEnabled   bool           `bson:"alarmEnabled" json:"alarmEnabled"`
	Status         ReminderStatus `bson:"status" json:"status"`
	FiredAt        *time.Time     `bson:"firedAt,omitempty" json:"firedAt,omitempty"`
	PostponedUntil *time.Time     `bson:"postponedUntil,omitempty" json:"postponedUntil,omitempty"`
	CreatedAt      time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time      `bson:"updatedAt" json:"updatedAt"`
}
