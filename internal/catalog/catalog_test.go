package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
)

// fixedSource always returns the same index, clamped to n.
type fixedSource int

func (f fixedSource) IntN(n int) int { return min(int(f), n-1) }

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want Record
	}{
		{
			name: "three fields",
			line: "asterisk-core-sounds-en-gsm/vm-goodbye.mp3\ten_GB\tGoodbye",
			want: Record{Path: "asterisk-core-sounds-en-gsm/vm-goodbye.mp3", LocaleCode: "en_GB", Transcription: "Goodbye"},
		},
		{
			name: "missing transcription",
			line: "misc/beep.gsm\ten",
			want: Record{Path: "misc/beep.gsm", LocaleCode: "en"},
		},
		{
			name: "extra fields are concatenated",
			line: "a.gsm\ten\tHello\tthere",
			want: Record{Path: "a.gsm", LocaleCode: "en", Transcription: "Hellothere"},
		},
		{
			name: "empty fields are kept",
			line: "\t\t",
			want: Record{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	for _, line := range []string{"", "no-tabs-here.gsm", "   "} {
		_, err := Parse(line)
		require.Error(t, err, "line %q", line)
		assert.ErrorIs(t, err, ErrMalformedRecord)
		assert.True(t, errors.IsCategory(err, errors.CategoryRecordParsing))
	}
}

func TestPackageName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"asterisk-core-sounds-en-gsm/vm-goodbye.mp3", "asterisk-core-sounds"},
		{"asterisk-extra-sounds-en/foo.gsm", "asterisk-extra-sounds"},
		{"a-b-c", "a-b-c"},
		{"misc/foo.gsm", "misc"},
		{"deep/er/foo.gsm", "deep/er"},
		{"foo.gsm", ""},
		{"one-two/foo.gsm", "one-two"},
		{"/foo.gsm", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Record{Path: tt.path}.PackageName())
		})
	}
}

func TestDisplayFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"asterisk-core-sounds-en-gsm/vm-goodbye.mp3", "vm-goodbye.wav"},
		{"dir/foo.gsm", "foo.gsm"},
		{"foo.mp3", "foo.wav"},
		{"dir/foo.mp3.gsm", "foo.mp3.gsm"},
		{"dir/FOO.MP3", "FOO.MP3"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Record{Path: tt.path}.DisplayFileName())
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sound-list.txt")
	body := "a.gsm\ten\tOne\n\n  \nb.gsm\ten_GB\tTwo\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	lines, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, lines, 4)
	assert.Equal(t, []string{"a.gsm\ten\tOne", "b.gsm\ten_GB\tTwo"}, NonEmpty(lines))
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.True(t, errors.IsCategory(err, errors.CategoryCatalog))
}

func TestPickRandomEmptyCatalog(t *testing.T) {
	t.Parallel()

	for _, lines := range [][]string{nil, {}, {"", "   ", "\t"}} {
		_, err := PickRandom(lines, fixedSource(0))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyCatalog)
	}
}

func TestPickRandomUsesSource(t *testing.T) {
	t.Parallel()

	lines := []string{"first\ten", "", "second\ten", "  third\ten  "}

	got, err := PickRandom(lines, fixedSource(0))
	require.NoError(t, err)
	assert.Equal(t, "first\ten", got)

	got, err = PickRandom(lines, fixedSource(2))
	require.NoError(t, err)
	assert.Equal(t, "third\ten", got)

	got, err = PickRandom(lines, nil)
	require.NoError(t, err)
	assert.Contains(t, []string{"first\ten", "second\ten", "third\ten"}, got)
}

func TestPickRandomAlwaysReturnsCandidate(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOf(rapid.StringMatching(`[ a-z\t]{0,12}`)).Draw(t, "lines")
		idx := rapid.IntRange(0, 100).Draw(t, "idx")

		candidates := NonEmpty(lines)
		got, err := PickRandom(lines, fixedSource(idx))
		if len(candidates) == 0 {
			if !errors.Is(err, ErrEmptyCatalog) {
				t.Fatalf("expected ErrEmptyCatalog, got %v", err)
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(got) == "" || got != strings.TrimSpace(got) {
			t.Fatalf("picked untrimmed or blank line %q", got)
		}
	})
}

func TestParseRoundTripsFields(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		field := rapid.StringMatching(`[^\t]{0,16}`)
		path := field.Draw(t, "path")
		code := field.Draw(t, "code")
		parts := rapid.SliceOf(field).Draw(t, "parts")

		line := strings.Join(append([]string{path, code}, parts...), "\t")
		rec, err := Parse(line)
		if err != nil {
			t.Fatalf("Parse(%q): %v", line, err)
		}
		if rec.Path != path || rec.LocaleCode != code || rec.Transcription != strings.Join(parts, "") {
			t.Fatalf("Parse(%q) = %+v", line, rec)
		}
	})
}
