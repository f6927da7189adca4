package settings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferencesUnsetResolvesToDefault(t *testing.T) {
	var prefs Preferences

	autoplay, err := prefs.Value("enableAutoplay")
	require.NoError(t, err)
	assert.True(t, autoplay, "unset enableAutoplay must resolve to its default, not false")

	zen, err := prefs.Value("zenMode")
	require.NoError(t, err)
	assert.False(t, zen)

	_, set, err := prefs.Get("enableAutoplay")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestPreferencesExplicitFalseIsKept(t *testing.T) {
	var prefs Preferences
	require.NoError(t, prefs.Set("experimentalGitHubCards", false))

	v, set, err := prefs.Get("experimentalGitHubCards")
	require.NoError(t, err)
	assert.True(t, set)
	assert.False(t, v)
	assert.False(t, prefs.Resolve().ExperimentalGitHubCards)

	require.NoError(t, prefs.Unset("experimentalGitHubCards"))
	assert.True(t, prefs.Resolve().ExperimentalGitHubCards)
}

func TestPreferencesToggle(t *testing.T) {
	testCases := []struct {
		key      string
		expected bool
	}{
		{"enableAutoplay", false},
		{"zenMode", true},
		{"hideNews", true},
		{"experimentalUserPicker", false},
	}

	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			var prefs Preferences
			next, err := prefs.Toggle(tc.key)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, next)

			again, err := prefs.Toggle(tc.key)
			require.NoError(t, err)
			assert.Equal(t, !tc.expected, again)
		})
	}
}

func TestPreferencesUnknownKey(t *testing.T) {
	var prefs Preferences

	_, _, err := prefs.Get("hideEverything")
	assert.ErrorIs(t, err, ErrUnknownPreference)
	assert.ErrorIs(t, prefs.Set("hideEverything", true), ErrUnknownPreference)
	assert.ErrorIs(t, prefs.Unset("hideEverything"), ErrUnknownPreference)
	_, err = prefs.Toggle("hideEverything")
	assert.ErrorIs(t, err, ErrUnknownPreference)
	assert.False(t, IsPreferenceKey("hideEverything"))
	assert.True(t, IsPreferenceKey("grayscaleMode"))
}

func TestPreferencesCloneSharesNothing(t *testing.T) {
	prefs := DefaultPreferences()
	clone := prefs.Clone()
	require.True(t, prefs.Equal(clone))

	*clone.EnableAutoplay = false
	assert.True(t, *prefs.EnableAutoplay)
	assert.False(t, prefs.Equal(clone))
}

func TestPreferencesEqualDistinguishesUnset(t *testing.T) {
	var unset Preferences
	explicit := Preferences{}
	require.NoError(t, explicit.Set("zenMode", false))

	assert.False(t, unset.Equal(explicit))
	assert.True(t, unset.Equal(Preferences{}))
}

func TestPreferencesJSONOmitsUnsetKeys(t *testing.T) {
	var prefs Preferences
	require.NoError(t, prefs.Set("hideBoostCount", true))

	data, err := json.Marshal(prefs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hideBoostCount":true}`, string(data))

	var decoded Preferences
	require.NoError(t, json.Unmarshal([]byte(`{"zenMode":false}`), &decoded))
	v, set, err := decoded.Get("zenMode")
	require.NoError(t, err)
	assert.True(t, set)
	assert.False(t, v)
}

func TestPreferenceKeysIsACopy(t *testing.T) {
	keys := PreferenceKeys()
	keys[0] = "mutated"
	assert.Equal(t, "hideAltIndicatorOnPosts", PreferenceKeys()[0])
}
