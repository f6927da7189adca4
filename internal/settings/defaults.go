package settings

const DefaultFontSize FontSize = "15px"

// DefaultPreferencesSettings returns a new copy of the default toggles.
func DefaultPreferencesSettings() PreferencesSettings {
	return PreferencesSettings{
		HideAltIndicatorOnPosts:     false,
		HideBoostCount:              false,
		HideReplyCount:              false,
		HideFavoriteCount:           false,
		HideFollowerCount:           false,
		HideTranslation:             false,
		HideUsernameEmojis:          false,
		HideAccountHoverCard:        false,
		HideNews:                    false,
		GrayscaleMode:               false,
		EnableAutoplay:              true,
		EnableDataSaving:            false,
		EnablePinchToZoom:           false,
		ZenMode:                     false,
		ExperimentalVirtualScroller: true,
		ExperimentalGitHubCards:     true,
		ExperimentalUserPicker:      true,
	}
}

// DefaultPreferences returns the defaults with every key set. Each call
// allocates fresh values, so callers may mutate the result freely.
func DefaultPreferences() Preferences {
	return DefaultPreferencesSettings().Partial()
}

// DefaultUserSettings builds the settings a new user starts with.
func DefaultUserSettings(env Environment, languages []string) UserSettings {
	return UserSettings{
		Language:                     DefaultLanguage(env, languages),
		FontSize:                     DefaultFontSize,
		DisabledTranslationLanguages: []string{},
		Preferences:                  DefaultPreferences(),
	}
}
