package caption

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/asterisksounds/asterisk-sound-bot/internal/catalog"
	"github.com/asterisksounds/asterisk-sound-bot/internal/locale"
)

func TestComposeExactText(t *testing.T) {
	t.Parallel()

	record, err := catalog.Parse("asterisk-core-sounds-en-gsm/vm-goodbye.mp3\ten_GB\tGoodbye")
	require.NoError(t, err)
	loc, err := locale.Resolve(record.LocaleCode)
	require.NoError(t, err)

	got := Compose(record, loc)

	assert.Equal(t,
		"\"Goodbye\"\n\n*️⃣ Asterisk sound 'vm-goodbye.wav'\n📦 From package 'asterisk-core-sounds'\n🇬🇧 Spoken in British English",
		got.StatusText)
	assert.Equal(t,
		`A telephone interactive voice response (IVR) system saying "Goodbye" in British English`,
		got.AltText)
}

func TestComposeDirectoryPackage(t *testing.T) {
	t.Parallel()

	loc, err := locale.Resolve("en")
	require.NoError(t, err)

	got := Compose(catalog.Record{Path: "misc/beep.gsm", LocaleCode: "en"}, loc)

	assert.Equal(t, "\"\"\n\n*️⃣ Asterisk sound 'beep.gsm'\n📦 From package 'misc'\n🇺🇸 Spoken in US English", got.StatusText)
	assert.Equal(t, `A telephone interactive voice response (IVR) system saying "" in US English`, got.AltText)
}

// Valid lines with a known locale always parse, resolve and compose to
// non-empty texts.
func TestComposeNeverEmpty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		field := rapid.StringMatching(`[^\t\n]{0,24}`)
		path := field.Draw(t, "path")
		code := rapid.SampledFrom(locale.Codes()).Draw(t, "code")
		words := rapid.SliceOf(field).Draw(t, "words")

		line := strings.Join(append([]string{path, code}, words...), "\t")
		record, err := catalog.Parse(line)
		if err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		loc, err := locale.Resolve(record.LocaleCode)
		if err != nil {
			t.Fatalf("resolve %q: %v", record.LocaleCode, err)
		}

		got := Compose(record, loc)
		if got.StatusText == "" || got.AltText == "" {
			t.Fatalf("empty caption for %q", line)
		}
		if !strings.HasSuffix(got.StatusText, loc.Flag+" Spoken in "+loc.DisplayName) {
			t.Fatalf("status text does not end with the locale line: %q", got.StatusText)
		}
		if strings.Count(got.StatusText, "\n") < 4 {
			t.Fatalf("status text lost its line structure: %q", got.StatusText)
		}
	})
}
