package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"settings-service/internal/event"
	"settings-service/internal/logging"
	"settings-service/internal/models"
	"settings-service/internal/repository"
	"settings-service/internal/settings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
)

// Store persists settings documents. Missing documents are reported as
// mongo.ErrNoDocuments. Update reports models.ErrVersionConflict when the
// stored version no longer matches doc.Metadata.Version.
type Store interface {
	New(ctx context.Context, doc *models.SettingsDocument) (*models.SettingsDocument, error)
	FindByUserID(ctx context.Context, userID string) (*models.SettingsDocument, error)
	Update(ctx context.Context, userID string, doc *models.SettingsDocument) (*models.SettingsDocument, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

type Cache interface {
	Get(ctx context.Context, userID string) (*models.SettingsDocument, error)
	Set(ctx context.Context, doc *models.SettingsDocument) error
	Invalidate(ctx context.Context, userID string) error
}

// maxWriteAttempts bounds the retries of a write that lost a version race.
const maxWriteAttempts = 5

type SettingsService struct {
	store     Store
	cache     Cache
	publisher event.Publisher
	languages []string
	logger    *zap.Logger
}

// NewSettingsService creates the service. cache may be nil. languages is the
// candidate list new settings pick their default language from.
func NewSettingsService(store Store, cache Cache, publisher event.Publisher, languages []string, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		languages: append([]string{}, languages...),
		logger:    logging.OrNop(logger),
	}
}

// Languages returns the configured candidate languages.
func (s *SettingsService) Languages() []string {
	return append([]string{}, s.languages...)
}

// Defaults returns default settings for env. A nil languages list uses the
// configured candidates.
func (s *SettingsService) Defaults(env settings.Environment, languages []string) settings.UserSettings {
	if languages == nil {
		languages = s.languages
	}
	return settings.DefaultUserSettings(env, languages)
}

// Get returns the user's settings, creating defaults for env on first access.
func (s *SettingsService) Get(ctx context.Context, userID string, env settings.Environment) (*models.SettingsDocument, error) {
	if userID == "" {
		return nil, models.ErrInvalidUserID
	}

	if s.cache != nil {
		doc, err := s.cache.Get(ctx, userID)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Debug("Settings cache lookup failed", zap.String("userId", userID), zap.Error(err))
		}
	}

	doc, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to get settings: %w", err)
		}
		doc, err = s.create(ctx, userID, env)
		if err != nil {
			return nil, err
		}
	}

	s.cacheSet(ctx, doc)
	return doc, nil
}

// Find returns the stored settings without creating them.
func (s *SettingsService) Find(ctx context.Context, userID string) (*models.SettingsDocument, error) {
	if userID == "" {
		return nil, models.ErrInvalidUserID
	}
	if s.cache != nil {
		if doc, err := s.cache.Get(ctx, userID); err == nil {
			return doc, nil
		}
	}

	doc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, doc)
	return doc, nil
}

// Provision creates default settings for a user that has none. It is used
// when no end-user context exists, so the language is the fallback.
func (s *SettingsService) Provision(ctx context.Context, userID string) (*models.SettingsDocument, error) {
	if userID == "" {
		return nil, models.ErrInvalidUserID
	}

	doc, err := s.store.FindByUserID(ctx, userID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to check existing settings: %w", err)
	}
	return s.create(ctx, userID, settings.ServerEnvironment())
}

func (s *SettingsService) create(ctx context.Context, userID string, env settings.Environment) (*models.SettingsDocument, error) {
	doc := &models.SettingsDocument{
		UserID:   userID,
		Settings: s.Defaults(env, nil),
	}

	created, err := s.store.New(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Created concurrently; return the winner.
			existing, findErr := s.store.FindByUserID(ctx, userID)
			if findErr == nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to create settings: %w", err)
	}

	s.publish(&models.SettingsEvent{
		EventType: models.EventTypeSettingsCreated,
		UserID:    userID,
		NewValues: map[string]any{
			"language": created.Settings.Language,
			"fontSize": created.Settings.FontSize,
		},
	})

	return created, nil
}

// Update applies a partial update. Legacy font sizes are accepted and stored
// in pixel form.
func (s *SettingsService) Update(ctx context.Context, userID string, req *models.UpdateSettingsRequest) (*models.SettingsDocument, error) {
	return s.mutate(ctx, userID, models.EventTypeSettingsUpdated, func(current settings.UserSettings) (settings.UserSettings, error) {
		return applyUpdate(current, req)
	})
}

// SetPreference sets one flag, or unsets it when value is nil.
func (s *SettingsService) SetPreference(ctx context.Context, userID, key string, value *bool) (*models.SettingsDocument, error) {
	return s.Update(ctx, userID, &models.UpdateSettingsRequest{
		Preferences: map[string]*bool{key: value},
	})
}

// TogglePreference flips the effective value of a flag and returns the new
// value.
func (s *SettingsService) TogglePreference(ctx context.Context, userID, key string) (*models.SettingsDocument, bool, error) {
	var value bool
	doc, err := s.mutate(ctx, userID, models.EventTypeSettingsUpdated, func(current settings.UserSettings) (settings.UserSettings, error) {
		next := current.Clone()
		toggled, err := next.Preferences.Toggle(key)
		if err != nil {
			return next, fmt.Errorf("%w: %w", models.ErrValidation, err)
		}
		value = toggled
		return next, nil
	})
	if err != nil {
		return nil, false, err
	}
	return doc, value, nil
}

// DisableTranslationLanguage adds lang to the languages excluded from
// translation. Adding a language twice is a no-op.
func (s *SettingsService) DisableTranslationLanguage(ctx context.Context, userID, lang string) (*models.SettingsDocument, error) {
	lang = strings.TrimSpace(lang)
	if !settings.IsLanguageTag(lang) {
		return nil, fmt.Errorf("%w: invalid language tag %q", models.ErrValidation, lang)
	}

	return s.mutate(ctx, userID, models.EventTypeSettingsUpdated, func(current settings.UserSettings) (settings.UserSettings, error) {
		next := current.Clone()
		if !slices.Contains(next.DisabledTranslationLanguages, lang) {
			next.DisabledTranslationLanguages = append(next.DisabledTranslationLanguages, lang)
		}
		return next, nil
	})
}

// EnableTranslationLanguage removes every occurrence of lang.
func (s *SettingsService) EnableTranslationLanguage(ctx context.Context, userID, lang string) (*models.SettingsDocument, error) {
	return s.mutate(ctx, userID, models.EventTypeSettingsUpdated, func(current settings.UserSettings) (settings.UserSettings, error) {
		next := current.Clone()
		next.DisabledTranslationLanguages = slices.DeleteFunc(next.DisabledTranslationLanguages, func(l string) bool {
			return l == lang
		})
		return next, nil
	})
}

// Reset replaces the user's settings with fresh defaults for env.
func (s *SettingsService) Reset(ctx context.Context, userID string, env settings.Environment) (*models.SettingsDocument, error) {
	doc, err := s.mutate(ctx, userID, models.EventTypeSettingsReset, func(settings.UserSettings) (settings.UserSettings, error) {
		return s.Defaults(env, nil), nil
	})
	if errors.Is(err, models.ErrSettingsNotFound) {
		return s.create(ctx, userID, env)
	}
	return doc, err
}

func (s *SettingsService) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return models.ErrInvalidUserID
	}

	if err := s.store.DeleteByUserID(ctx, userID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ErrSettingsNotFound
		}
		return fmt.Errorf("failed to delete settings: %w", err)
	}

	s.invalidate(ctx, userID)
	s.publish(&models.SettingsEvent{
		EventType: models.EventTypeSettingsDeleted,
		UserID:    userID,
	})
	return nil
}

// mutate runs a read-modify-write cycle on the user's settings. change gets a
// private copy of the stored settings. When another writer got in between,
// the cycle starts over from a fresh read.
func (s *SettingsService) mutate(ctx context.Context, userID string, eventType models.EventType, change func(current settings.UserSettings) (settings.UserSettings, error)) (*models.SettingsDocument, error) {
	for attempt := 1; ; attempt++ {
		existing, err := s.load(ctx, userID)
		if err != nil {
			return nil, err
		}

		next, err := change(existing.Settings.Clone())
		if err != nil {
			return nil, err
		}

		doc, err := s.save(ctx, existing, next, eventType)
		if errors.Is(err, models.ErrVersionConflict) && attempt < maxWriteAttempts {
			s.logger.Debug("Settings changed during update, retrying",
				zap.String("userId", userID),
				zap.Int("attempt", attempt))
			continue
		}
		return doc, err
	}
}

func (s *SettingsService) load(ctx context.Context, userID string) (*models.SettingsDocument, error) {
	if userID == "" {
		return nil, models.ErrInvalidUserID
	}

	doc, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return doc, nil
}

// save validates and stores next. Nothing is written or published when next
// equals the stored settings, unless eventType is a reset.
func (s *SettingsService) save(ctx context.Context, existing *models.SettingsDocument, next settings.UserSettings, eventType models.EventType) (*models.SettingsDocument, error) {
	if err := settings.Validate(next); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}

	changedFields, oldValues, newValues := diffSettings(existing.Settings, next)
	if len(changedFields) == 0 && eventType != models.EventTypeSettingsReset {
		return existing, nil
	}

	updated := existing.Clone()
	updated.Settings = next

	saved, err := s.store.Update(ctx, existing.UserID, updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrSettingsNotFound
		}
		if errors.Is(err, models.ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	s.invalidate(ctx, existing.UserID)
	s.publish(&models.SettingsEvent{
		EventType:     eventType,
		UserID:        existing.UserID,
		ChangedFields: changedFields,
		OldValues:     oldValues,
		NewValues:     newValues,
	})

	return saved, nil
}

func (s *SettingsService) publish(evt *models.SettingsEvent) {
	if s.publisher == nil {
		return
	}
	evt.Timestamp = time.Now()
	if err := s.publisher.PublishSettingsEvent(evt); err != nil {
		s.logger.Warn("Failed to publish settings event",
			zap.String("eventType", string(evt.EventType)),
			zap.String("userId", evt.UserID),
			zap.Error(err))
	}
}

func (s *SettingsService) cacheSet(ctx context.Context, doc *models.SettingsDocument) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, doc); err != nil {
		s.logger.Warn("Failed to cache settings", zap.String("userId", doc.UserID), zap.Error(err))
	}
}

func (s *SettingsService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate cached settings", zap.String("userId", userID), zap.Error(err))
	}
}
