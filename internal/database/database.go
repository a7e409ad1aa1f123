package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used across the stores.
const (
	CollDrives     = "drives"
	CollDriveItems = "drive_items"
	CollSettings   = "settings"
	CollTasks      = "update_tasks"
	CollUsers      = "users"
	CollAccounts   = "accounts"
	CollTokenCache = "token_cache"
)

// UpdateTaskTTL is how long a finished (or stalled) sync task record survives
// after its last update before Mongo removes it.
const UpdateTaskTTL = 5 * time.Minute

var Client *mongo.Client

func ConnectDB(mongoURI string) {
	client, err := mongo.NewClient(options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = client.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}

	// Ping the primary
	err = client.Ping(ctx, nil)
	if err != nil {
		log.Fatal(err)
	}

	Client = client
	log.Println("Successfully connected to MongoDB!")
}

// EnsureIndexes creates the indexes the stores rely on. Safe to call on every
// startup; Mongo treats matching definitions as a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CollDrives).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(CollDriveItems).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "parentReference.id", Value: 1}}},
		{Keys: bson.D{{Key: "parentReference.driveId", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(CollSettings).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "driveId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	// Update tasks vanish on their own a few minutes after the last write.
	_, err = db.Collection(CollTasks).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updatedAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(UpdateTaskTTL.Seconds())),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(CollUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(CollAccounts).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "localAccountId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
