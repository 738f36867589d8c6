package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// PasswordResetToken stores the sha256 of an emailed reset token. The raw
// token never touches the database.
type PasswordResetToken struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    bson.ObjectID `bson:"userId" json:"userId"`
	TokenHash string        `bson:"tokenHash" json:"-"`
	ExpiresAt time.Time     `bson:"expiresAt" json:"expiresAt"`
	IsUsed    bool          `bson:"isUsed" json:"isUsed"`
	UsedAt    *time.Time    `bson:"usedAt,omitempty" json:"usedAt,omitempty"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}

func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Usable reports whether the token can still be exchanged for a new password.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return !t.IsUsed && !t.IsExpired(now)
}
