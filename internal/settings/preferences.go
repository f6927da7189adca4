package settings

import (
	"errors"
	"fmt"
)

var ErrUnknownPreference = errors.New("unknown preference")

// PreferencesSettings is the complete set of feature toggles.
type PreferencesSettings struct {
	HideAltIndicatorOnPosts     bool `json:"hideAltIndicatorOnPosts" bson:"hideAltIndicatorOnPosts"`
	HideBoostCount              bool `json:"hideBoostCount" bson:"hideBoostCount"`
	HideReplyCount              bool `json:"hideReplyCount" bson:"hideReplyCount"`
	HideFavoriteCount           bool `json:"hideFavoriteCount" bson:"hideFavoriteCount"`
	HideFollowerCount           bool `json:"hideFollowerCount" bson:"hideFollowerCount"`
	HideTranslation             bool `json:"hideTranslation" bson:"hideTranslation"`
	HideUsernameEmojis          bool `json:"hideUsernameEmojis" bson:"hideUsernameEmojis"`
	HideAccountHoverCard        bool `json:"hideAccountHoverCard" bson:"hideAccountHoverCard"`
	HideNews                    bool `json:"hideNews" bson:"hideNews"`
	GrayscaleMode               bool `json:"grayscaleMode" bson:"grayscaleMode"`
	EnableAutoplay              bool `json:"enableAutoplay" bson:"enableAutoplay"`
	EnableDataSaving            bool `json:"enableDataSaving" bson:"enableDataSaving"`
	EnablePinchToZoom           bool `json:"enablePinchToZoom" bson:"enablePinchToZoom"`
	ZenMode                     bool `json:"zenMode" bson:"zenMode"`
	ExperimentalVirtualScroller bool `json:"experimentalVirtualScroller" bson:"experimentalVirtualScroller"`
	ExperimentalGitHubCards     bool `json:"experimentalGitHubCards" bson:"experimentalGitHubCards"`
	ExperimentalUserPicker      bool `json:"experimentalUserPicker" bson:"experimentalUserPicker"`
}

// Partial converts p into a Preferences value with every key set.
func (p PreferencesSettings) Partial() Preferences {
	var out Preferences
	for _, key := range preferenceKeys {
		v := *p.field(key)
		*out.field(key) = &v
	}
	return out
}

func (p *PreferencesSettings) field(key string) *bool {
	switch key {
	case "hideAltIndicatorOnPosts":
		return &p.HideAltIndicatorOnPosts
	case "hideBoostCount":
		return &p.HideBoostCount
	case "hideReplyCount":
		return &p.HideReplyCount
	case "hideFavoriteCount":
		return &p.HideFavoriteCount
	case "hideFollowerCount":
		return &p.HideFollowerCount
	case "hideTranslation":
		return &p.HideTranslation
	case "hideUsernameEmojis":
		return &p.HideUsernameEmojis
	case "hideAccountHoverCard":
		return &p.HideAccountHoverCard
	case "hideNews":
		return &p.HideNews
	case "grayscaleMode":
		return &p.GrayscaleMode
	case "enableAutoplay":
		return &p.EnableAutoplay
	case "enableDataSaving":
		return &p.EnableDataSaving
	case "enablePinchToZoom":
		return &p.EnablePinchToZoom
	case "zenMode":
		return &p.ZenMode
	case "experimentalVirtualScroller":
		return &p.ExperimentalVirtualScroller
	case "experimentalGitHubCards":
		return &p.ExperimentalGitHubCards
	case "experimentalUserPicker":
		return &p.ExperimentalUserPicker
	}
	return nil
}

// Preferences is the stored, partial form of PreferencesSettings. A nil field
// is unset and resolves to its default, which is not necessarily false.
type Preferences struct {
	HideAltIndicatorOnPosts     *bool `json:"hideAltIndicatorOnPosts,omitempty" bson:"hideAltIndicatorOnPosts,omitempty"`
	HideBoostCount              *bool `json:"hideBoostCount,omitempty" bson:"hideBoostCount,omitempty"`
	HideReplyCount              *bool `json:"hideReplyCount,omitempty" bson:"hideReplyCount,omitempty"`
	HideFavoriteCount           *bool `json:"hideFavoriteCount,omitempty" bson:"hideFavoriteCount,omitempty"`
	HideFollowerCount           *bool `json:"hideFollowerCount,omitempty" bson:"hideFollowerCount,omitempty"`
	HideTranslation             *bool `json:"hideTranslation,omitempty" bson:"hideTranslation,omitempty"`
	HideUsernameEmojis          *bool `json:"hideUsernameEmojis,omitempty" bson:"hideUsernameEmojis,omitempty"`
	HideAccountHoverCard        *bool `json:"hideAccountHoverCard,omitempty" bson:"hideAccountHoverCard,omitempty"`
	HideNews                    *bool `json:"hideNews,omitempty" bson:"hideNews,omitempty"`
	GrayscaleMode               *bool `json:"grayscaleMode,omitempty" bson:"grayscaleMode,omitempty"`
	EnableAutoplay              *bool `json:"enableAutoplay,omitempty" bson:"enableAutoplay,omitempty"`
	EnableDataSaving            *bool `json:"enableDataSaving,omitempty" bson:"enableDataSaving,omitempty"`
	EnablePinchToZoom           *bool `json:"enablePinchToZoom,omitempty" bson:"enablePinchToZoom,omitempty"`
	ZenMode                     *bool `json:"zenMode,omitempty" bson:"zenMode,omitempty"`
	ExperimentalVirtualScroller *bool `json:"experimentalVirtualScroller,omitempty" bson:"experimentalVirtualScroller,omitempty"`
	ExperimentalGitHubCards     *bool `json:"experimentalGitHubCards,omitempty" bson:"experimentalGitHubCards,omitempty"`
	ExperimentalUserPicker      *bool `json:"experimentalUserPicker,omitempty" bson:"experimentalUserPicker,omitempty"`
}

func (p *Preferences) field(key string) **bool {
	switch key {
	case "hideAltIndicatorOnPosts":
		return &p.HideAltIndicatorOnPosts
	case "hideBoostCount":
		return &p.HideBoostCount
	case "hideReplyCount":
		return &p.HideReplyCount
	case "hideFavoriteCount":
		return &p.HideFavoriteCount
	case "hideFollowerCount":
		return &p.HideFollowerCount
	case "hideTranslation":
		return &p.HideTranslation
	case "hideUsernameEmojis":
		return &p.HideUsernameEmojis
	case "hideAccountHoverCard":
		return &p.HideAccountHoverCard
	case "hideNews":
		return &p.HideNews
	case "grayscaleMode":
		return &p.GrayscaleMode
	case "enableAutoplay":
		return &p.EnableAutoplay
	case "enableDataSaving":
		return &p.EnableDataSaving
	case "enablePinchToZoom":
		return &p.EnablePinchToZoom
	case "zenMode":
		return &p.ZenMode
	case "experimentalVirtualScroller":
		return &p.ExperimentalVirtualScroller
	case "experimentalGitHubCards":
		return &p.ExperimentalGitHubCards
	case "experimentalUserPicker":
		return &p.ExperimentalUserPicker
	}
	return nil
}

// Get returns the stored value of key and whether it is set.
func (p Preferences) Get(key string) (value bool, set bool, err error) {
	f := p.field(key)
	if f == nil {
		return false, false, fmt.Errorf("%w: %s", ErrUnknownPreference, key)
	}
	if *f == nil {
		return false, false, nil
	}
	return **f, true, nil
}

// Value returns the effective value of key, falling back to its default when
// unset.
func (p Preferences) Value(key string) (bool, error) {
	v, set, err := p.Get(key)
	if err != nil {
		return false, err
	}
	if set {
		return v, nil
	}
	defaults := DefaultPreferencesSettings()
	return *defaults.field(key), nil
}

func (p *Preferences) Set(key string, value bool) error {
	f := p.field(key)
	if f == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPreference, key)
	}
	*f = &value
	return nil
}

func (p *Preferences) Unset(key string) error {
	f := p.field(key)
	if f == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPreference, key)
	}
	*f = nil
	return nil
}

// Toggle flips the effective value of key and returns the new value.
func (p *Preferences) Toggle(key string) (bool, error) {
	current, err := p.Value(key)
	if err != nil {
		return false, err
	}
	next := !current
	return next, p.Set(key, next)
}

// Resolve fills every unset key with its default.
func (p Preferences) Resolve() PreferencesSettings {
	out := DefaultPreferencesSettings()
	for _, key := range preferenceKeys {
		if v := *p.field(key); v != nil {
			*out.field(key) = *v
		}
	}
	return out
}

// Clone returns a copy that shares no pointers with p.
func (p Preferences) Clone() Preferences {
	var out Preferences
	for _, key := range preferenceKeys {
		if v := *p.field(key); v != nil {
			b := *v
			*out.field(key) = &b
		}
	}
	return out
}

// Equal compares stored values, treating unset and set as different.
func (p Preferences) Equal(other Preferences) bool {
	for _, key := range preferenceKeys {
		a, b := *p.field(key), *other.field(key)
		if (a == nil) != (b == nil) {
			return false
		}
		if a != nil && *a != *b {
			return false
		}
	}
	return true
}

var preferenceKeys = []string{
	"hideAltIndicatorOnPosts",
	"hideBoostCount",
	"hideReplyCount",
	"hideFavoriteCount",
	"hideFollowerCount",
	"hideTranslation",
	"hideUsernameEmojis",
	"hideAccountHoverCard",
	"hideNews",
	"grayscaleMode",
	"enableAutoplay",
	"enableDataSaving",
	"enablePinchToZoom",
	"zenMode",
	"experimentalVirtualScroller",
	"experimentalGitHubCards",
	"experimentalUserPicker",
}

// PreferenceKeys lists the preference names in declaration order.
func PreferenceKeys() []string {
	return append([]string{}, preferenceKeys...)
}

func IsPreferenceKey(key string) bool {
	var p Preferences
	return p.field(key) != nil
}
