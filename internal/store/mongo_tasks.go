package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"drivebridge/backend/internal/database"
	"drivebridge/backend/internal/models"
)

type MongoTasks struct {
	coll *mongo.Collection
}

func NewMongoTasks(db *mongo.Database) *MongoTasks {
	return &MongoTasks{coll: db.Collection(database.CollTasks)}
}

func (s *MongoTasks) Create(ctx context.Context, name string) (string, error) {
	now := time.Now().UTC()
	task := models.UpdateTask{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Progress:  0,
		Completed: models.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.coll.InsertOne(ctx, task); err != nil {
		return "", err
	}
	return task.ID.Hex(), nil
}

func (s *MongoTasks) FindByID(ctx context.Context, id string) (*models.UpdateTask, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var task models.UpdateTask
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *MongoTasks) SetProgress(ctx context.Context, id string, progress float64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"progress": progress, "updatedAt": time.Now().UTC()}},
	)
	return err
}

func (s *MongoTasks) SetCompleted(ctx context.Context, id string, status models.TaskStatus, errMsg string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	set := bson.M{"completed": status, "updatedAt": time.Now().UTC()}
	if errMsg != "" {
		set["error"] = errMsg
	}
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	return err
}
