package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"settings-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MemoryRepository keeps settings in process memory. It backs local runs
// without MongoDB and the service tests. Documents are copied on the way in
// and out.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]*models.SettingsDocument
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs: make(map[string]*models.SettingsDocument),
	}
}

func (r *MemoryRepository) New(_ context.Context, doc *models.SettingsDocument) (*models.SettingsDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[doc.UserID]; exists {
		return nil, fmt.Errorf("failed to insert settings: %w", mongo.WriteException{
			WriteErrors: []mongo.WriteError{{Code: 11000, Message: "duplicate key userId"}},
		})
	}

	if doc.ID.IsZero() {
		doc.ID = bson.NewObjectID()
	}
	currentTime := int(time.Now().Unix())
	if doc.Metadata.CreatedAt == 0 {
		doc.Metadata.CreatedAt = currentTime
	}
	doc.Metadata.UpdatedAt = currentTime

	r.docs[doc.UserID] = doc.Clone()
	return doc.Clone(), nil
}

func (r *MemoryRepository) FindByUserID(_ context.Context, userID string) (*models.SettingsDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[userID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	out := doc.Clone()
	out.Settings.Normalize()
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, userID string, doc *models.SettingsDocument) (*models.SettingsDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.docs[userID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	if stored.Metadata.Version != doc.Metadata.Version {
		return nil, models.ErrVersionConflict
	}
	updated := stored.Clone()
	updated.Settings = doc.Settings.Clone()
	updated.Metadata.UpdatedAt = int(time.Now().Unix())
	updated.Metadata.Version++
	r.docs[userID] = updated
	return updated.Clone(), nil
}

func (r *MemoryRepository) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[userID]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(r.docs, userID)
	return nil
}

func (r *MemoryRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.docs)), nil
}
