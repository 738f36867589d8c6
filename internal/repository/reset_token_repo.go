package repository

import (
	"context"
	"time"

	"pulso-backend/internal/database"
	"pulso-backend/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ResetTokenRepo struct {
	collection *mongo.Collection
}

func NewResetTokenRepo() *ResetTokenRepo {
	return &ResetTokenRepo{
		collection: database.GetCollection("password_reset_tokens"),
	}
}

func (r *ResetTokenRepo) Create(ctx context.Context, token *models.PasswordResetToken) error {
	token.CreatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, token)
	if err != nil {
		return err
	}
	token.ID = result.InsertedID.(bson.ObjectID)
	return nil
}

func (r *ResetTokenRepo) InvalidateForUser(ctx context.Context, userID bson.ObjectID, now time.Time) error {
	_, err := r.collection.UpdateMany(ctx, bson.M{"userId": userID, "isUsed": false}, bson.M{
		"$set": bson.M{"isUsed": true, "usedAt": now},
	})
	return err
}

// Consume flips isUsed in the same operation that checks it, so a token can
// only ever be redeemed by one request.
func (r *ResetTokenRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (*models.PasswordResetToken, error) {
	filter := bson.M{
		"tokenHash": tokenHash,
		"isUsed":    false,
		"expiresAt": bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"isUsed": true, "usedAt": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var token models.PasswordResetToken
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&token)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// EnsureIndexes creates necessary indexes for the password_reset_tokens collection
func (r *ResetTokenRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isUsed", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index, mongo drops expired tokens
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
