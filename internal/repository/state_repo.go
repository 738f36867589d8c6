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

type StateRepo struct {
	collection *mongo.Collection
}

func NewStateRepo() *StateRepo {
	return &StateRepo{
		collection: database.GetCollection("states"),
	}
}

func (r *StateRepo) FindByUserID(ctx context.Context, userID bson.ObjectID) (*models.State, error) {
	var state models.State
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&state)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

// Upsert replaces the whole document for state.UserID.
func (r *StateRepo) Upsert(ctx context.Context, state *models.State) error {
	state.ID = bson.ObjectID{}
	state.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"userId": state.UserID}, state,
		options.Replace().SetUpsert(true))
	return err
}

func (r *StateRepo) SetPlan(ctx context.Context, userID bson.ObjectID, plan string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{
		"$set": bson.M{
			"userPlan":  plan,
			"updatedAt": time.Now(),
		},
	}, options.UpdateOne().SetUpsert(true))
	return err
}

// EnsureIndexes creates necessary indexes for the states collection
func (r *StateRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
