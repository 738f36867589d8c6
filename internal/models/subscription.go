package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	PlanFree    = "free"
	PlanPremium = "premium"

	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
)

type Subscription struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID      bson.ObjectID `bson:"userId" json:"userId"`
	Plan        string        `bson:"plan" json:"plan"`
	Status      string        `bson:"status" json:"status"`
	ActivatedAt *time.Time    `bson:"activatedAt,omitempty" json:"activatedAt,omitempty"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// IsPremium is true only for an active premium subscription. A nil
// subscription is the free plan.
func (s *Subscription) IsPremium() bool {
	return s != nil && s.Plan == PlanPremium && s.Status == SubscriptionActive
}

var freeFeatures = []string{"basic_actions", "streak"}

var premiumFeatures = []string{"alarms", "history", "session_notes", "sounds", "energy_scheduling"}

// Features lists what the subscription unlocks on the client.
func (s *Subscription) Features() []string {
	out := append([]string{}, freeFeatures...)
	if s.IsPremium() {
		out = append(out, premiumFeatures...)
	}
	return out
}

// ValidPlan reports whether plan is a plan the API accepts.
func ValidPlan(plan string) bool {
	return plan == PlanFree || plan == PlanPremium
}
