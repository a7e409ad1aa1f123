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

type MongoSettings struct {
	coll *mongo.Collection
}

func NewMongoSettings(db *mongo.Database) *MongoSettings {
	return &MongoSettings{coll: db.Collection(database.CollSettings)}
}

func (s *MongoSettings) Find(ctx context.Context, driveID string) (*models.DriveSettings, error) {
	var settings models.DriveSettings
	err := s.coll.FindOne(ctx, bson.M{"driveId": driveID}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *MongoSettings) Create(ctx context.Context, driveID string) (*models.DriveSettings, error) {
	now := time.Now().UTC()
	settings := &models.DriveSettings{
		DriveID:   driveID,
		RootPath:  "/",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.coll.InsertOne(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *MongoSettings) SetRootPath(ctx context.Context, driveID string, enabled *bool, rootPath *string) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if enabled != nil {
		set["rootPathEnabled"] = *enabled
	}
	if rootPath != nil {
		set["rootPath"] = *rootPath
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"driveId": driveID}, bson.M{"$set": set})
	return err
}

// PushRule appends the rule, guarded so a document that already holds a rule
// at the same path does not match. The rules array stays sorted by path.
func (s *MongoSettings) PushRule(ctx context.Context, driveID string, rule models.AccessRule) (bool, error) {
	filter := bson.M{
		"driveId":          driveID,
		"accessRules.path": bson.M{"$ne": rule.Path},
	}
	update := bson.M{
		"$push": bson.M{
			"accessRules": bson.M{
				"$each": bson.A{rule},
				"$sort": bson.M{"path": 1},
			},
		},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoSettings) SetRule(ctx context.Context, driveID string, rule models.AccessRule) (bool, error) {
	filter := bson.M{"driveId": driveID, "accessRules._id": rule.ID}
	update := bson.M{
		"$set": bson.M{
			"accessRules.$.path":     rule.Path,
			"accessRules.$.action":   rule.Action,
			"accessRules.$.password": rule.Password,
			"updatedAt":              time.Now().UTC(),
		},
	}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoSettings) PullRule(ctx context.Context, driveID, ruleID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(ruleID)
	if err != nil {
		return false, nil
	}
	filter := bson.M{"driveId": driveID, "accessRules._id": oid}
	update := bson.M{
		"$pull": bson.M{"accessRules": bson.M{"_id": oid}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
