package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"drivebridge/backend/internal/database"
	"drivebridge/backend/internal/models"
)

type MongoUsers struct {
	coll *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{coll: db.Collection(database.CollUsers)}
}

func (s *MongoUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type MongoAccounts struct {
	coll *mongo.Collection
}

func NewMongoAccounts(db *mongo.Database) *MongoAccounts {
	return &MongoAccounts{coll: db.Collection(database.CollAccounts)}
}

func (s *MongoAccounts) FindByLocalID(ctx context.Context, localAccountID string) (*models.Account, error) {
	var account models.Account
	err := s.coll.FindOne(ctx, bson.M{"localAccountId": localAccountID}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *MongoAccounts) FindAll(ctx context.Context) ([]models.Account, error) {
	cursor, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var accounts []models.Account
	if err = cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = make([]models.Account, 0)
	}
	return accounts, nil
}

func (s *MongoAccounts) Upsert(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"username":  account.Username,
			"name":      account.Name,
			"tenantId":  account.TenantID,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.coll.UpdateOne(ctx, bson.M{"localAccountId": account.LocalAccountID}, update, opts)
	return err
}
