package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"settings-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const settingsCollection = "UserSettings"

type SettingsRepository struct {
	collection *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{
		collection: db.Collection(settingsCollection),
	}
}

func (r *SettingsRepository) New(ctx context.Context, doc *models.SettingsDocument) (*models.SettingsDocument, error) {
	if doc.ID.IsZero() {
		doc.ID = bson.NewObjectID()
	}

	currentTime := int(time.Now().Unix())
	if doc.Metadata.CreatedAt == 0 {
		doc.Metadata.CreatedAt = currentTime
	}
	doc.Metadata.UpdatedAt = currentTime

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to insert settings: %w", err)
	}
	return doc, nil
}

// FindByUserID returns mongo.ErrNoDocuments when the user has no settings.
// Legacy values are normalized on the way out.
func (r *SettingsRepository) FindByUserID(ctx context.Context, userID string) (*models.SettingsDocument, error) {
	var doc models.SettingsDocument
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if err != nil {
		return nil, err
	}
	doc.Settings.Normalize()
	return &doc, nil
}

// Update replaces the settings of userID if the stored version still equals
// doc.Metadata.Version, and bumps the version. A stale version gives
// models.ErrVersionConflict; a missing document gives mongo.ErrNoDocuments.
func (r *SettingsRepository) Update(ctx context.Context, userID string, doc *models.SettingsDocument) (*models.SettingsDocument, error) {
	filter := versionFilter(userID, doc.Metadata.Version)
	update := bson.M{
		"$set": bson.M{
			"settings":           doc.Settings,
			"metadata.updatedAt": int(time.Now().Unix()),
		},
		"$inc": bson.M{"metadata.version": 1},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.SettingsDocument
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			count, countErr := r.collection.CountDocuments(ctx, bson.M{"userId": userID})
			if countErr != nil {
				return nil, fmt.Errorf("failed to update settings: %w", countErr)
			}
			if count > 0 {
				return nil, models.ErrVersionConflict
			}
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	updated.Settings.Normalize()
	return &updated, nil
}

// versionFilter matches userID at version. Version zero also matches
// documents that predate the version field.
func versionFilter(userID string, version int64) bson.M {
	if version == 0 {
		return bson.M{
			"userId": userID,
			"$or": bson.A{
				bson.M{"metadata.version": 0},
				bson.M{"metadata.version": bson.M{"$exists": false}},
			},
		}
	}
	return bson.M{"userId": userID, "metadata.version": version}
}

func (r *SettingsRepository) DeleteByUserID(ctx context.Context, userID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID})
	if err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}

	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

func (r *SettingsRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count settings: %w", err)
	}
	return count, nil
}

func (r *SettingsRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "metadata.updatedAt", Value: -1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
