package settings

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidFontSize = errors.New("invalid font size")

// FontSize is a pixel size such as "15px".
type FontSize string

// LegacyFontSize is the named size stored by older clients. It is only read,
// never written.
type LegacyFontSize string

const (
	LegacyFontSizeXS LegacyFontSize = "xs"
	LegacyFontSizeSM LegacyFontSize = "sm"
	LegacyFontSizeMD LegacyFontSize = "md"
	LegacyFontSizeLG LegacyFontSize = "lg"
	LegacyFontSizeXL LegacyFontSize = "xl"
)

var legacyFontSizes = map[LegacyFontSize]FontSize{
	LegacyFontSizeXS: "13px",
	LegacyFontSizeSM: "14px",
	LegacyFontSizeMD: "15px",
	LegacyFontSizeLG: "16px",
	LegacyFontSizeXL: "17px",
}

var pixelPattern = regexp.MustCompile(`^\d+(\.\d+)?px$`)

func (f FontSize) Valid() bool {
	return pixelPattern.MatchString(string(f))
}

// Pixels returns the numeric part of f, or 0 when f is not a pixel size.
func (f FontSize) Pixels() float64 {
	if !f.Valid() {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(string(f), "px"), 64)
	if err != nil {
		return 0
	}
	return v
}

// Migrate maps a legacy named size to its pixel equivalent.
func (l LegacyFontSize) Migrate() (FontSize, bool) {
	size, ok := legacyFontSizes[l]
	return size, ok
}

// ParseFontSize accepts a pixel size or a legacy named size and returns the
// pixel form.
func ParseFontSize(s string) (FontSize, error) {
	s = strings.TrimSpace(s)
	if size := FontSize(s); size.Valid() {
		return size, nil
	}
	if size, ok := LegacyFontSize(strings.ToLower(s)).Migrate(); ok {
		return size, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFontSize, s)
}
