package settings

type ColorMode string

const (
	ColorModeLight  ColorMode = "light"
	ColorModeDark   ColorMode = "dark"
	ColorModeSystem ColorMode = "system" // Follows system settings
)

// Valid reports whether m is a known color mode. The empty value means unset
// and is valid.
func (m ColorMode) Valid() bool {
	switch m {
	case "", ColorModeLight, ColorModeDark, ColorModeSystem:
		return true
	}
	return false
}

// ThemeColors overrides the built-in theme. Keys are CSS custom properties and
// values are passed through untouched.
type ThemeColors struct {
	ThemeColorName string `json:"--theme-color-name" bson:"--theme-color-name"`

	Primary           string `json:"--c-primary" bson:"--c-primary"`
	PrimaryActive     string `json:"--c-primary-active" bson:"--c-primary-active"`
	PrimaryLight      string `json:"--c-primary-light" bson:"--c-primary-light"`
	PrimaryFade       string `json:"--c-primary-fade" bson:"--c-primary-fade"`
	DarkPrimary       string `json:"--c-dark-primary" bson:"--c-dark-primary"`
	DarkPrimaryActive string `json:"--c-dark-primary-active" bson:"--c-dark-primary-active"`
	DarkPrimaryLight  string `json:"--c-dark-primary-light" bson:"--c-dark-primary-light"`
	DarkPrimaryFade   string `json:"--c-dark-primary-fade" bson:"--c-dark-primary-fade"`

	RGBPrimary     string `json:"--rgb-primary" bson:"--rgb-primary"`
	RGBDarkPrimary string `json:"--rgb-dark-primary" bson:"--rgb-dark-primary"`
}

// UserSettings is the preferences record for one user.
type UserSettings struct {
	Preferences                  Preferences  `json:"preferences" bson:"preferences"`
	ColorMode                    ColorMode    `json:"colorMode,omitempty" bson:"colorMode,omitempty" validate:"colormode"`
	FontSize                     FontSize     `json:"fontSize" bson:"fontSize" validate:"required,fontsize"`
	Language                     string       `json:"language" bson:"language" validate:"required,langtag"`
	DisabledTranslationLanguages []string     `json:"disabledTranslationLanguages" bson:"disabledTranslationLanguages" validate:"dive,langtag"`
	ThemeColors                  *ThemeColors `json:"themeColors,omitempty" bson:"themeColors,omitempty"`
}

// Clone returns a deep copy of s.
func (s UserSettings) Clone() UserSettings {
	out := s
	out.Preferences = s.Preferences.Clone()
	if s.DisabledTranslationLanguages != nil {
		out.DisabledTranslationLanguages = append([]string{}, s.DisabledTranslationLanguages...)
	}
	if s.ThemeColors != nil {
		tc := *s.ThemeColors
		out.ThemeColors = &tc
	}
	return out
}

// Normalize brings settings read from storage into canonical form: legacy
// font sizes are migrated to pixels, and missing required fields get their
// built-in defaults. It returns true when anything changed.
func (s *UserSettings) Normalize() bool {
	changed := false

	if s.FontSize == "" {
		s.FontSize = DefaultFontSize
		changed = true
	} else if !s.FontSize.Valid() {
		size, err := ParseFontSize(string(s.FontSize))
		if err != nil {
			size = DefaultFontSize
		}
		s.FontSize = size
		changed = true
	}

	if s.Language == "" {
		s.Language = FallbackLanguage
		changed = true
	}

	if s.DisabledTranslationLanguages == nil {
		s.DisabledTranslationLanguages = []string{}
		changed = true
	}

	if !s.ColorMode.Valid() {
		s.ColorMode = ""
		changed = true
	}

	return changed
}
