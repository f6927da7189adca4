package models

import (
	"settings-service/internal/settings"
)

// UpdateSettingsRequest is a partial update. Nil fields are left untouched.
type UpdateSettingsRequest struct {
	// Preferences sets the listed flags; a null value unsets the flag.
	Preferences                  map[string]*bool      `json:"preferences,omitempty"`
	ColorMode                    *settings.ColorMode   `json:"colorMode,omitempty"`
	FontSize                     *string               `json:"fontSize,omitempty"` // Pixel size or legacy name
	Language                     *string               `json:"language,omitempty"`
	DisabledTranslationLanguages *[]string             `json:"disabledTranslationLanguages,omitempty"`
	ThemeColors                  *settings.ThemeColors `json:"themeColors,omitempty"`
	ClearThemeColors             bool                  `json:"clearThemeColors,omitempty"`
}

type SetPreferenceRequest struct {
	Value *bool `json:"value"`
}

type TranslationLanguageRequest struct {
	Language string `json:"language"`
}

type PreferenceDefinition struct {
	Key     string `json:"key"`
	Default bool   `json:"default"`
}
