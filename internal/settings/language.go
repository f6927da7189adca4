package settings

import (
	"golang.org/x/text/language"
)

// FallbackLanguage is used whenever no better language can be determined.
const FallbackLanguage = "en-US"

// Matcher picks the best of the available language tags for a user's ordered
// preferences. It reports false when nothing matches.
type Matcher interface {
	Match(available, preferred []string) (string, bool)
}

// TagMatcher matches BCP 47 tags with golang.org/x/text/language. Tags that do
// not parse are ignored.
type TagMatcher struct{}

func (TagMatcher) Match(available, preferred []string) (string, bool) {
	supported := make([]language.Tag, 0, len(available))
	index := make([]int, 0, len(available))
	for i, a := range available {
		tag, err := language.Parse(a)
		if err != nil {
			continue
		}
		supported = append(supported, tag)
		index = append(index, i)
	}

	wanted := make([]language.Tag, 0, len(preferred))
	for _, p := range preferred {
		tag, err := language.Parse(p)
		if err != nil {
			continue
		}
		wanted = append(wanted, tag)
	}

	if len(supported) == 0 || len(wanted) == 0 {
		return "", false
	}

	_, i, confidence := language.NewMatcher(supported).Match(wanted...)
	if confidence == language.No {
		return "", false
	}
	return available[index[i]], true
}

// Environment describes where defaults are being computed. In a server
// environment there is no end user whose language preferences can be read.
type Environment struct {
	Server             bool
	PreferredLanguages []string
	// Matcher defaults to TagMatcher when nil.
	Matcher Matcher
}

func ServerEnvironment() Environment {
	return Environment{Server: true}
}

func ClientEnvironment(preferred ...string) Environment {
	return Environment{PreferredLanguages: preferred}
}

// EnvironmentFromAcceptLanguage builds a client environment from an HTTP
// Accept-Language header, ordered by quality. A malformed header gives an
// environment with no preferences.
func EnvironmentFromAcceptLanguage(header string) Environment {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return ClientEnvironment()
	}
	preferred := make([]string, 0, len(tags))
	for _, t := range tags {
		preferred = append(preferred, t.String())
	}
	return ClientEnvironment(preferred...)
}

func (e Environment) matcher() Matcher {
	if e.Matcher == nil {
		return TagMatcher{}
	}
	return e.Matcher
}

// DefaultLanguage returns the best of languages for the environment's user,
// or FallbackLanguage. It never returns an empty string.
func DefaultLanguage(env Environment, languages []string) string {
	if env.Server {
		return FallbackLanguage
	}
	if lang, ok := env.matcher().Match(languages, env.PreferredLanguages); ok && lang != "" {
		return lang
	}
	return FallbackLanguage
}

// IsLanguageTag reports whether s parses as a BCP 47 tag.
func IsLanguageTag(s string) bool {
	_, err := language.Parse(s)
	return err == nil
}
