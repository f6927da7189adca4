package service

import (
	"fmt"
	"slices"
	"strings"

	"settings-service/internal/models"
	"settings-service/internal/settings"
)

func applyUpdate(current settings.UserSettings, req *models.UpdateSettingsRequest) (settings.UserSettings, error) {
	next := current.Clone()
	if req == nil {
		return next, nil
	}

	for key, value := range req.Preferences {
		var err error
		if value == nil {
			err = next.Preferences.Unset(key)
		} else {
			err = next.Preferences.Set(key, *value)
		}
		if err != nil {
			return next, fmt.Errorf("%w: %w", models.ErrValidation, err)
		}
	}

	if req.ColorMode != nil {
		if !req.ColorMode.Valid() {
			return next, fmt.Errorf("%w: unknown color mode %q", models.ErrValidation, *req.ColorMode)
		}
		next.ColorMode = *req.ColorMode
	}

	if req.FontSize != nil {
		size, err := settings.ParseFontSize(*req.FontSize)
		if err != nil {
			return next, fmt.Errorf("%w: %w", models.ErrValidation, err)
		}
		next.FontSize = size
	}

	if req.Language != nil {
		next.Language = strings.TrimSpace(*req.Language)
	}

	if req.DisabledTranslationLanguages != nil {
		next.DisabledTranslationLanguages = append([]string{}, (*req.DisabledTranslationLanguages)...)
	}

	if req.ClearThemeColors {
		next.ThemeColors = nil
	} else if req.ThemeColors != nil {
		tc := *req.ThemeColors
		next.ThemeColors = &tc
	}

	return next, nil
}

// diffSettings lists the top-level fields that differ between old and new.
func diffSettings(old, new settings.UserSettings) ([]string, map[string]any, map[string]any) {
	changedFields := []string{}
	oldValues := make(map[string]any)
	newValues := make(map[string]any)

	record := func(field string, o, n any) {
		changedFields = append(changedFields, field)
		oldValues[field] = o
		newValues[field] = n
	}

	if !old.Preferences.Equal(new.Preferences) {
		record("preferences", old.Preferences, new.Preferences)
	}
	if old.ColorMode != new.ColorMode {
		record("colorMode", old.ColorMode, new.ColorMode)
	}
	if old.FontSize != new.FontSize {
		record("fontSize", old.FontSize, new.FontSize)
	}
	if old.Language != new.Language {
		record("language", old.Language, new.Language)
	}
	if !slices.Equal(old.DisabledTranslationLanguages, new.DisabledTranslationLanguages) {
		record("disabledTranslationLanguages", old.DisabledTranslationLanguages, new.DisabledTranslationLanguages)
	}
	if !themeColorsEqual(old.ThemeColors, new.ThemeColors) {
		record("themeColors", old.ThemeColors, new.ThemeColors)
	}

	return changedFields, oldValues, newValues
}

func themeColorsEqual(a, b *settings.ThemeColors) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
