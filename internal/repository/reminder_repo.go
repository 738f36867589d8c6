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

type ReminderRepo struct {
	collection *mongo.Collection
}

func NewReminderRepo() *ReminderRepo {
	return &ReminderRepo{
		collection: database.GetCollection("reminders"),
	}
}

func (r *ReminderRepo) ListByUser(ctx context.Context, userID bson.ObjectID) ([]models.Reminder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}

	reminders := []models.Reminder{}
	if err := cursor.All(ctx, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

func (r *ReminderRepo) FindByID(ctx context.Context, userID bson.ObjectID, id string) (*models.Reminder, error) {
	var reminder models.Reminder
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "id": id}).Decode(&reminder)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &reminder, nil
}

func (r *ReminderRepo) Create(ctx context.Context, reminder *models.Reminder) error {
	now := time.Now()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	if _, err := r.collection.InsertOne(ctx, reminder); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateReminder
		}
		return err
	}
	return nil
}

func (r *ReminderRepo) Update(ctx context.Context, reminder *models.Reminder) error {
	reminder.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"userId": reminder.UserID, "id": reminder.ID}, reminder)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrReminderNotFound
	}
	return nil
}

func (r *ReminderRepo) Delete(ctx context.Context, userID bson.ObjectID, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID, "id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrReminderNotFound
	}
	return nil
}

func (r *ReminderRepo) ListActive(ctx context.Context) ([]models.Reminder, error) {
	filter := bson.M{"status": bson.M{"$in": []models.ReminderStatus{models.ReminderPending, models.ReminderPostponed}}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	reminders := []models.Reminder{}
	if err := cursor.All(ctx, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

func (r *ReminderRepo) MarkFired(ctx context.Context, userID bson.ObjectID, id string, firedAt time.Time, status models.ReminderStatus) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID, "id": id}, bson.M{
		"$set": bson.M{
			"firedAt":   firedAt,
			"status":    status,
			"updatedAt": time.Now(),
		},
		"$unset": bson.M{"postponedUntil": ""},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrReminderNotFound
	}
	return nil
}

// EnsureIndexes creates necessary indexes for the reminders collection
func (r *ReminderRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}, {Key: "time", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
