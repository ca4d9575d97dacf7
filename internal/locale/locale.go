// Package locale holds the compiled-in table of locales a catalog record may
// be spoken in. The display names and flags are part of the published caption
// format, so the table is not configurable.
package locale

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/language"

	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
)

// ErrUnknownLocale is returned by Resolve for codes missing from the table.
var ErrUnknownLocale = errors.NewStd("unknown locale")

// Locale is an immutable entry of the locale table.
type Locale struct {
	Code        string `yaml:"code"`
	DisplayName string `yaml:"display_name"`
	Flag        string `yaml:"flag"`
}

var table = map[string]Locale{
	"en":    {Code: "en", DisplayName: "US English", Flag: "🇺🇸"},
	"en_GB": {Code: "en_GB", DisplayName: "British English", Flag: "🇬🇧"},
	"en_NZ": {Code: "en_NZ", DisplayName: "New Zealand English", Flag: "🇳🇿"},
	"en_AU": {Code: "en_AU", DisplayName: "Australian English", Flag: "🇦🇺"},
}

// Resolve looks up a locale code. Codes are matched exactly.
func Resolve(code string) (Locale, error) {
	loc, ok := table[code]
	if !ok {
		return Locale{}, errors.New(fmt.Errorf("%w: %q", ErrUnknownLocale, code)).
			Component("locale").
			Category(errors.CategoryLocale).
			Context("locale_code", code).
			Context("known_codes", strings.Join(Codes(), ",")).
			Build()
	}
	return loc, nil
}

// Codes returns the known locale codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// Tag returns the BCP 47 tag of the locale, e.g. en-GB for en_GB.
func (l Locale) Tag() language.Tag {
	tag, err := language.Parse(strings.ReplaceAll(l.Code, "_", "-"))
	if err != nil {
		return language.Und
	}
	return tag
}

// Language returns the ISO 639 language of the locale, "en" for every entry
// of the table. It is empty when the tag has no known base language.
func (l Locale) Language() string {
	tag := l.Tag()
	if tag == language.Und {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}
