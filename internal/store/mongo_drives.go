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

type MongoDrives struct {
	coll *mongo.Collection
}

func NewMongoDrives(db *mongo.Database) *MongoDrives {
	return &MongoDrives{coll: db.Collection(database.CollDrives)}
}

func (s *MongoDrives) FindMany(ctx context.Context) ([]models.Drive, error) {
	cursor, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var drives []models.Drive
	if err = cursor.All(ctx, &drives); err != nil {
		return nil, err
	}
	if drives == nil {
		drives = make([]models.Drive, 0)
	}
	return drives, nil
}

func (s *MongoDrives) FindByID(ctx context.Context, id string) (*models.Drive, error) {
	var drive models.Drive
	err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&drive)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &drive, nil
}

func (s *MongoDrives) FindByOwnerLocalID(ctx context.Context, localAccountID string) (*models.Drive, error) {
	var drive models.Drive
	err := s.coll.FindOne(ctx, bson.M{"owner.user.id": localAccountID}).Decode(&drive)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &drive, nil
}

// Upsert merges by remote id. The $set carries only the fetched payload
// fields (omitempty leaves deltaLink/shareBaseUrl/entireUpdateTag untouched),
// so the locally-maintained sync state survives refreshes of the drive
// snapshot.
func (s *MongoDrives) Upsert(ctx context.Context, drive *models.Drive) (*models.Drive, error) {
	drive.UpdatedAt = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var merged models.Drive
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"id": drive.ID},
		bson.M{"$set": drive},
		opts,
	).Decode(&merged)
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

func (s *MongoDrives) SaveSyncState(ctx context.Context, id, deltaLink, entireUpdateTag string) error {
	set := bson.M{
		"deltaLink": deltaLink,
		"updatedAt": time.Now().UTC(),
	}
	if entireUpdateTag != "" {
		set["entireUpdateTag"] = entireUpdateTag
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	return err
}

func (s *MongoDrives) SaveShareBaseURL(ctx context.Context, id, shareBaseURL string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"shareBaseUrl": shareBaseURL, "updatedAt": time.Now().UTC()}},
	)
	return err
}

func (s *MongoDrives) Delete(ctx context.Context, id string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"id": id})
	return err
}
