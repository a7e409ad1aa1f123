package msauth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"drivebridge/backend/internal/database"
)

// TokenStore persists serialized OAuth tokens per local account id. It is
// loaded before and saved after every acquisition, so tokens survive
// restarts and refresh-token rotation is never lost.
type TokenStore interface {
	Load(ctx context.Context, localAccountID string) ([]byte, error)
	Save(ctx context.Context, localAccountID string, serialized []byte) error
}

type tokenRecord struct {
	LocalAccountID  string    `bson:"localAccountId"`
	SerializedToken []byte    `bson:"serializedToken"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

// MongoTokenStore keeps the token cache in the token_cache collection, one
// document per account.
type MongoTokenStore struct {
	coll *mongo.Collection
}

func NewMongoTokenStore(db *mongo.Database) *MongoTokenStore {
	return &MongoTokenStore{coll: db.Collection(database.CollTokenCache)}
}

func (s *MongoTokenStore) Load(ctx context.Context, localAccountID string) ([]byte, error) {
	var record tokenRecord
	err := s.coll.FindOne(ctx, bson.M{"localAccountId": localAccountID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record.SerializedToken, nil
}

func (s *MongoTokenStore) Save(ctx context.Context, localAccountID string, serialized []byte) error {
	update := bson.M{"$set": bson.M{
		"serializedToken": serialized,
		"updatedAt":       time.Now().UTC(),
	}}
	opts := options.Update().SetUpsert(true)
	_, err := s.coll.UpdateOne(ctx, bson.M{"localAccountId": localAccountID}, update, opts)
	return err
}

// RedisTokenStore is the alternative backend selected when REDIS_URI is set.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) key(localAccountID string) string {
	return "token_cache:" + localAccountID
}

func (s *RedisTokenStore) Load(ctx context.Context, localAccountID string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(localAccountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, localAccountID string, serialized []byte) error {
	return s.client.Set(ctx, s.key(localAccountID), serialized, 0).Err()
}
