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

type SubscriptionRepo struct {
	collection *mongo.Collection
}

func NewSubscriptionRepo() *SubscriptionRepo {
	return &SubscriptionRepo{
		collection: database.GetCollection("subscriptions"),
	}
}

func (r *SubscriptionRepo) FindByUserID(ctx context.Context, userID bson.ObjectID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&sub)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepo) Upsert(ctx context.Context, sub *models.Subscription) error {
	sub.UpdatedAt = time.Now()
	_, err := r.collection.UpdateOne(ctx, bson.M{"userId": sub.UserID}, bson.M{
		"$set": bson.M{
			"plan":        sub.Plan,
			"status":      sub.Status,
			"activatedAt": sub.ActivatedAt,
			"updatedAt":   sub.UpdatedAt,
		},
	}, options.UpdateOne().SetUpsert(true))
	return err
}

// EnsureIndexes creates necessary indexes for the subscriptions collection
func (r *SubscriptionRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
