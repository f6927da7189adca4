package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"settings-service/internal/event"
	"settings-service/internal/models"
	"settings-service/internal/repository"
	"settings-service/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLanguages = []string{"en-US", "fr", "de"}

type memCache struct {
	docs        map[string]*models.SettingsDocument
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{docs: make(map[string]*models.SettingsDocument)}
}

func (c *memCache) Get(_ context.Context, userID string) (*models.SettingsDocument, error) {
	doc, ok := c.docs[userID]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return doc.Clone(), nil
}

func (c *memCache) Set(_ context.Context, doc *models.SettingsDocument) error {
	c.docs[doc.UserID] = doc.Clone()
	return nil
}

func (c *memCache) Invalidate(_ context.Context, userID string) error {
	delete(c.docs, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

type failingStore struct {
	*repository.MemoryRepository
	err error
}

func (f *failingStore) FindByUserID(context.Context, string) (*models.SettingsDocument, error) {
	return nil, f.err
}

// slowStore widens the window between read and write so concurrent updates
// overlap.
type slowStore struct {
	*repository.MemoryRepository
}

func (s *slowStore) FindByUserID(ctx context.Context, userID string) (*models.SettingsDocument, error) {
	doc, err := s.MemoryRepository.FindByUserID(ctx, userID)
	time.Sleep(2 * time.Millisecond)
	return doc, err
}

// interferingStore lets another writer change the document right before the
// first n updates go through.
type interferingStore struct {
	*repository.MemoryRepository
	remaining int
	calls     int
	interfere func(doc *models.SettingsDocument)
}

func (s *interferingStore) Update(ctx context.Context, userID string, doc *models.SettingsDocument) (*models.SettingsDocument, error) {
	s.calls++
	if s.remaining > 0 {
		s.remaining--
		current, err := s.MemoryRepository.FindByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.interfere(current)
		if _, err := s.MemoryRepository.Update(ctx, userID, current); err != nil {
			return nil, err
		}
	}
	return s.MemoryRepository.Update(ctx, userID, doc)
}

func newTestService() (*SettingsService, *repository.MemoryRepository, *memCache, *event.MockPublisher) {
	store := repository.NewMemoryRepository()
	cache := newMemCache()
	publisher := event.NewMockPublisher()
	return NewSettingsService(store, cache, publisher, testLanguages, nil), store, cache, publisher
}

func boolPtr(b bool) *bool { return &b }

func TestDefaults(t *testing.T) {
	svc, _, _, _ := newTestService()

	server := svc.Defaults(settings.ServerEnvironment(), nil)
	assert.Equal(t, "en-US", server.Language)

	client := svc.Defaults(settings.ClientEnvironment("fr-FR", "en-US"), nil)
	assert.Equal(t, "fr", client.Language)

	override := svc.Defaults(settings.ClientEnvironment("de-CH"), []string{"it", "de-DE"})
	assert.Equal(t, "de-DE", override.Language)
}

func TestGetProvisionsOnFirstAccess(t *testing.T) {
	svc, store, cache, publisher := newTestService()
	ctx := context.Background()

	doc, err := svc.Get(ctx, "u-1", settings.ClientEnvironment("de-AT"))
	require.NoError(t, err)
	assert.Equal(t, "de", doc.Settings.Language)
	assert.Equal(t, settings.DefaultFontSize, doc.Settings.FontSize)

	stored, err := store.FindByUserID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, stored.ID)
	assert.Contains(t, cache.docs, "u-1")

	events := publisher.GetEvents()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTypeSettingsCreated, events[0].EventType)

	// Second call is served from cache and does not create again.
	again, err := svc.Get(ctx, "u-1", settings.ClientEnvironment("fr"))
	require.NoError(t, err)
	assert.Equal(t, "de", again.Settings.Language)
	assert.Len(t, publisher.GetEvents(), 1)
}

func TestGetRequiresUserID(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Get(context.Background(), "", settings.ServerEnvironment())
	assert.ErrorIs(t, err, models.ErrInvalidUserID)
}

func TestGetStoreFailure(t *testing.T) {
	store := &failingStore{MemoryRepository: repository.NewMemoryRepository(), err: errors.New("connection reset")}
	svc := NewSettingsService(store, nil, event.NewMockPublisher(), testLanguages, nil)

	_, err := svc.Get(context.Background(), "u-1", settings.ServerEnvironment())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrSettingsNotFound)
}

func TestFindDoesNotCreate(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Find(ctx, "u-1")
	assert.ErrorIs(t, err, models.ErrSettingsNotFound)
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = svc.Provision(ctx, "u-1")
	require.NoError(t, err)
	doc, err := svc.Find(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", doc.UserID)
}

func TestProvisionIsIdempotent(t *testing.T) {
	svc, _, _, publisher := newTestService()
	ctx := context.Background()

	first, err := svc.Provision(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "en-US", first.Settings.Language)

	second, err := svc.Provision(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, publisher.GetEvents(), 1)
}

func TestUpdate(t *testing.T) {
	svc, _, cache, publisher := newTestService()
	ctx := context.Background()
	_, err := svc.Provision(ctx, "u-1")
	require.NoError(t, err)
	publisher.ClearEvents()

	dark := settings.ColorModeDark
	legacy := "lg"
	lang := "fr"
	langs := []string{"de", "ja"}
	doc, err := svc.Update(ctx, "u-1", &models.UpdateSettingsRequest{
		Preferences:                  map[string]*bool{"zenMode": boolPtr(true), "enableAutoplay": nil},
		ColorMode:                    &dark,
		FontSize:                     &legacy,
		Language:                     &lang,
		DisabledTranslationLanguages: &langs,
		ThemeColors:                  &settings.ThemeColors{ThemeColorName: "Ocean", Primary: "#0af"},
	})
	require.NoError(t, err)

	assert.Equal(t, settings.ColorModeDark, doc.Settings.ColorMode)
	assert.Equal(t, settings.FontSize("16px"), doc.Settings.FontSize)
	assert.Equal(t, "fr", doc.Settings.Language)
	assert.Equal(t, []string{"de", "ja"}, doc.Settings.DisabledTranslationLanguages)
	require.NotNil(t, doc.Settings.ThemeColors)
	assert.Equal(t, "Ocean", doc.Settings.ThemeColors.ThemeColorName)

	resolved := doc.Settings.Preferences.Resolve()
	assert.True(t, resolved.ZenMode)
	assert.True(t, resolved.EnableAutoplay)
	_, set, err := doc.Settings.Preferences.Get("enableAutoplay")
	require.NoError(t, err)
	assert.False(t, set)

	assert.Contains(t, cache.invalidated, "u-1")
	events := publisher.GetEvents()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTypeSettingsUpdated, events[0].EventType)
	assert.ElementsMatch(t,
		[]string{"preferences", "colorMode", "fontSize", "language", "disabledTranslationLanguages", "themeColors"},
		events[0].ChangedFields)
}

func TestUpdateNoChangesPublishesNothing(t *testing.T) {
	svc, _, _, publisher := newTestService()
	ctx := context.Background()
	_, err := svc.Provision(ctx, "u-1")
	require.NoError(t, err)
	publisher.ClearEvents()

	size := "15px"
	_, err = svc.Update(ctx, "u-1", &models.UpdateSettingsRequest{
		FontSize:    &size,
		Preferences: map[string]*bool{"enableAutoplay": boolPtr(true)},
	})
	require.NoError(t, err)
	assert.Empty(t, publisher.GetEvents())
}

func TestUpdateValidation(t *testing.T) {
	sepia := settings.ColorMode("sepia")
	badSize := "huge"
	badLang := "not a tag"
	empty := ""

	testCases := []struct {
		name string
		req  *models.UpdateSettingsRequest
	}{
		{"unknown preference", &models.UpdateSettingsRequest{Preferences: map[string]*bool{"hideAll": boolPtr(true)}}},
		{"color mode", &models.UpdateSettingsRequest{ColorMode: &sepia}},
		{"font size", &models.UpdateSettingsRequest{FontSize: &badSize}},
		{"language", &models.UpdateSettingsRequest{Language: &badLang}},
		{"empty language", &models.UpdateSettingsRequest{Language: &empty}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _, _ := newTestService()
			ctx := context.Background()
			_, err := svc.Provision(ctx, "u-1")
			require.NoError(t, err)

			_, err = svc.Update(ctx, "u-1", tc.req)
			assert.ErrorIs(t, err, models.ErrValidation)

			stored, err := svc.Get(ctx, "u-1", settings.ServerEnvironment())
			require.NoError(t, err)
			assert.Equal(t, "en-US", stored.Settings.Language)
		})
	}
}

func TestUpdateMissingSettings(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Update(context.Background(), "ghost", &models.UpdateSettingsRequest{})
	assert.ErrorIs(t, err, models.ErrSettingsNotFound)
}

func TestClearThemeColors(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Provision(ctx, "u-1")
	require.NoError(t, err)

	_, err = svc.Update(ctx, "u-1", &models.UpdateSettingsRequest{ThemeColors: &settings.ThemeColors{Primary: "#123"}})
	require.NoError(t, err)

	doc, err := svc.Update(ctx, "u-1", &models.UpdateSettingsRequest{ClearThemeColors: true})
	require.NoError(t, err)
	assert.Nil(t, doc.Settings.ThemeColors)
}

func TestSetAndTogglePreference(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Provision(ctx, "u-1")
	require.NoError(t, err)

	doc, err := svc.SetPreference(ctx, "u-1", "hideNews", boolPtr(true))
	require.NoError(t, err)
	assert.True(t, doc.Settings.Preferences.Resolve().HideNews)

	doc, value, err := svc.TogglePreference(ctx, "u-1", "enableAutoplay")
	require.NoError(t, err)
	assert.False(t, value)
	assert.False(t, doc.Settings.Preferences.Resolve().EnableAutoplay)

	_, _, err = svc.TogglePreference(ctx, "u-1", "nope")
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.ErrorIs(t, err, settings.ErrUnknownPreference)
}

func TestTranslationLanguages(t *testing.T) {
	svc, _, _, publisher := newTestService()
	ctx := context.Background()
	_, err := svc.Provision(ctx, "u-1")
	require.NoError(t, err)
	publisher.ClearEvents()

	_, err = svc.DisableTranslationLanguage(ctx, "u-1", "de")
	require.NoError(t, err)
	_, err = svc.DisableTranslationLanguage(ctx, "u-1", "ja")
	require.NoError(t, err)
	doc, err := svc.DisableTranslationLanguage(ctx, "u-1", "de")
	require.NoError(t, err)
	assert.Equal(t, []string{"de", "ja"}, doc.Settings.DisabledTranslationLanguages)
	assert.Len(t, publisher.GetEvents(), 2)

	doc, err = svc.EnableTranslationLanguage(ctx, "u-1", "de")
	require.NoError(t, err)
	assert.Equal(t, []string{"ja"}, doc.Settings.DisabledTranslationLanguages)

	_, err = svc.DisableTranslationLanguage(ctx, "u-1", "??")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestReset(t *testing.T) {
	svc, _, _, publisher := newTestService()
	ctx := context.Background()
	_, err := svc.Provision(ctx, "u-1")
	require.NoError(t, err)
	_, err = svc.SetPreference(ctx, "u-1", "zenMode", boolPtr(true))
	require.NoError(t, err)
	publisher.ClearEvents()

	doc, err := svc.Reset(ctx, "u-1", settings.ClientEnvironment("fr-CA"))
	require.NoError(t, err)
	assert.Equal(t, "fr", doc.Settings.Language)
	assert.Equal(t, settings.DefaultPreferencesSettings(), doc.Settings.Preferences.Resolve())

	events := publisher.GetEvents()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTypeSettingsReset, events[0].EventType)

	fresh, err := svc.Reset(ctx, "u-2", settings.ServerEnvironment())
	require.NoError(t, err)
	assert.Equal(t, "u-2", fresh.UserID)
}

func TestDelete(t *testing.T) {
	svc, _, cache, publisher := newTestService()
	ctx := context.Background()
	_, err := svc.Get(ctx, "u-1", settings.ServerEnvironment())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "u-1"))
	assert.NotContains(t, cache.docs, "u-1")
	assert.ErrorIs(t, svc.Delete(ctx, "u-1"), models.ErrSettingsNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, ""), models.ErrInvalidUserID)

	events := publisher.GetEvents()
	assert.Equal(t, models.EventTypeSettingsDeleted, events[len(events)-1].EventType)
}

func TestReturnedSettingsAreIsolated(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	doc, err := svc.Get(ctx, "u-1", settings.ServerEnvironment())
	require.NoError(t, err)
	*doc.Settings.Preferences.ZenMode = true

	other, err := svc.Get(ctx, "u-2", settings.ServerEnvironment())
	require.NoError(t, err)
	assert.False(t, *other.Settings.Preferences.ZenMode)

	again, err := svc.Get(ctx, "u-1", settings.ServerEnvironment())
	require.NoError(t, err)
	assert.False(t, *again.Settings.Preferences.ZenMode)
}

func TestConcurrentPreferenceUpdates(t *testing.T) {
	store := &slowStore{MemoryRepository: repository.NewMemoryRepository()}
	publisher := event.NewMockPublisher()
	svc := NewSettingsService(store, nil, publisher, testLanguages, nil)
	ctx := context.Background()

	_, err := svc.Provision(ctx, "u-1")
	require.NoError(t, err)

	keys := []string{"hideBoostCount", "hideReplyCount", "zenMode", "grayscaleMode"}

	var wg sync.WaitGroup
	errs := make(chan error, len(keys))
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := svc.SetPreference(ctx, "u-1", key, boolPtr(true))
			errs <- err
		}(key)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	doc, err := svc.Find(ctx, "u-1")
	require.NoError(t, err)
	for _, key := range keys {
		value, err := doc.Settings.Preferences.Value(key)
		require.NoError(t, err)
		assert.True(t, value, key)
	}
	assert.Equal(t, int64(len(keys)), doc.Metadata.Version)
}

func TestUpdateRetriesAfterVersionConflict(t *testing.T) {
	store := &interferingStore{
		MemoryRepository: repository.NewMemoryRepository(),
		remaining:        1,
		interfere: func(doc *models.SettingsDocument) {
			doc.Settings.DisabledTranslationLanguages = []string{"ja"}
		},
	}
	publisher := event.NewMockPublisher()
	svc := NewSettingsService(store, nil, publisher, testLanguages, nil)
	ctx := context.Background()

	_, err := svc.Provision(ctx, "u-1")
	require.NoError(t, err)

	doc, _, err := svc.TogglePreference(ctx, "u-1", "zenMode")
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)

	zen, err := doc.Settings.Preferences.Value("zenMode")
	require.NoError(t, err)
	assert.True(t, zen)
	assert.Equal(t, []string{"ja"}, doc.Settings.DisabledTranslationLanguages)
	assert.Equal(t, int64(2), doc.Metadata.Version)
}

func TestUpdateGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := &interferingStore{
		MemoryRepository: repository.NewMemoryRepository(),
		remaining:        maxWriteAttempts,
		interfere: func(doc *models.SettingsDocument) {
			doc.Settings.Language = "de"
		},
	}
	svc := NewSettingsService(store, nil, nil, testLanguages, nil)
	ctx := context.Background()

	_, err := svc.Provision(ctx, "u-1")
	require.NoError(t, err)

	_, err = svc.SetPreference(ctx, "u-1", "zenMode", boolPtr(true))
	assert.ErrorIs(t, err, models.ErrVersionConflict)
	assert.Equal(t, maxWriteAttempts, store.calls)
}
