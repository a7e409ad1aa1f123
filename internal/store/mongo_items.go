package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"drivebridge/backend/internal/database"
	"drivebridge/backend/internal/models"
)

type MongoDriveItems struct {
	coll *mongo.Collection
}

func NewMongoDriveItems(db *mongo.Database) *MongoDriveItems {
	return &MongoDriveItems{coll: db.Collection(database.CollDriveItems)}
}

func (s *MongoDriveItems) FindByID(ctx context.Context, id string) (*models.DriveItem, error) {
	var item models.DriveItem
	err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *MongoDriveItems) FindRoot(ctx context.Context, driveID string) (*models.DriveItem, error) {
	var item models.DriveItem
	filter := bson.M{
		"parentReference.driveId": driveID,
		"root":                    bson.M{"$exists": true},
	}
	err := s.coll.FindOne(ctx, filter).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *MongoDriveItems) FindChildren(ctx context.Context, parentID string, page Page) ([]models.DriveItem, error) {
	page = page.Normalize()
	opts := options.Find().
		SetSkip(page.Skip).
		SetLimit(page.Limit).
		SetSort(bson.D{{Key: page.SortKey, Value: page.Order}})

	cursor, err := s.coll.Find(ctx, bson.M{"parentReference.id": parentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.DriveItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = make([]models.DriveItem, 0)
	}
	return items, nil
}

func (s *MongoDriveItems) FindChildByName(ctx context.Context, parentID, name string) (*models.DriveItem, error) {
	var item models.DriveItem
	filter := bson.M{"parentReference.id": parentID, "name": name}
	err := s.coll.FindOne(ctx, filter).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// BulkApply writes one delta page in a single ordered bulk operation. Upserts
// are idempotent $set-by-id writes, so replaying a page after a crash yields
// the same tree.
func (s *MongoDriveItems) BulkApply(ctx context.Context, upserts []models.DriveItem, deleteIDs []string) (BulkResult, error) {
	if len(upserts) == 0 && len(deleteIDs) == 0 {
		return BulkResult{}, nil
	}

	writes := make([]mongo.WriteModel, 0, len(upserts)+len(deleteIDs))
	for i := range upserts {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"id": upserts[i].ID}).
			SetUpdate(bson.M{"$set": &upserts[i]}).
			SetUpsert(true))
	}
	for _, id := range deleteIDs {
		writes = append(writes, mongo.NewDeleteOneModel().
			SetFilter(bson.M{"id": id}))
	}

	res, err := s.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return BulkResult{}, err
	}
	return BulkResult{
		Inserted: res.UpsertedCount,
		Updated:  res.MatchedCount,
		Deleted:  res.DeletedCount,
	}, nil
}

func (s *MongoDriveItems) DeleteStale(ctx context.Context, driveID, keepTag string) (int64, error) {
	filter := bson.M{
		"parentReference.driveId": driveID,
		"entireUpdateTag":         bson.M{"$ne": keepTag},
	}
	res, err := s.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoDriveItems) DeleteByDrive(ctx context.Context, driveID string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"parentReference.driveId": driveID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoDriveItems) SetSharePermission(ctx context.Context, id string, perm *models.SharePermission) error {
	var update bson.M
	if perm == nil {
		update = bson.M{"$unset": bson.M{"sharePermission": ""}}
	} else {
		update = bson.M{"$set": bson.M{"sharePermission": perm}}
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	return err
}
