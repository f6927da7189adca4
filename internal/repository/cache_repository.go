package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"settings-service/internal/models"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("settings not cached")

type SettingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSettingsCache(client *redis.Client, ttl time.Duration) *SettingsCache {
	return &SettingsCache{
		client: client,
		ttl:    ttl,
	}
}

func cacheKey(userID string) string {
	return "settings:" + userID
}

func (c *SettingsCache) Get(ctx context.Context, userID string) (*models.SettingsDocument, error) {
	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("error get settings in cache: %w", err)
	}

	return decodeDocument(data)
}

func (c *SettingsCache) Set(ctx context.Context, doc *models.SettingsDocument) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return fmt.Errorf("error saving settings to cache: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(doc.UserID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("error saving settings to cache: %w", err)
	}
	return nil
}

func (c *SettingsCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("error deleting key %s: %w", cacheKey(userID), err)
	}
	return nil
}

func encodeDocument(doc *models.SettingsDocument) ([]byte, error) {
	return json.Marshal(doc)
}

// decodeDocument reads a cached value. Entries written by older versions may
// carry legacy font sizes, so the settings are normalized like a store read.
func decodeDocument(data []byte) (*models.SettingsDocument, error) {
	var doc models.SettingsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error decoding cached settings: %w", err)
	}
	doc.Settings.Normalize()
	return &doc, nil
}
