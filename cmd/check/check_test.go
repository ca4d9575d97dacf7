package check

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/asterisksounds/asterisk-sound-bot/internal/catalog"
	"github.com/asterisksounds/asterisk-sound-bot/internal/locale"
	"github.com/asterisksounds/asterisk-sound-bot/internal/publish"
)

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sound-list.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCheckCleanCatalog(t *testing.T) {
	t.Parallel()

	path := writeCatalog(t, "asterisk-core-sounds-en-gsm/vm-goodbye.mp3\ten_GB\tGoodbye\n\n"+
		"asterisk-core-sounds-en-gsm/vm-hello.mp3\ten\tHello\nmisc/beep.gsm\ten_AU\tBeep\n")

	var out bytes.Buffer
	require.NoError(t, Run(path, &out))

	var report Report
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 4, report.Lines)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, map[string]int{"en_GB": 1, "en": 1, "en_AU": 1}, report.ByLocale)
	assert.Equal(t, map[string]int{"asterisk-core-sounds": 2, "misc": 1}, report.ByPackage)
	assert.Empty(t, report.Problems)
}

func TestCheckReportsProblemsWithLineNumbers(t *testing.T) {
	t.Parallel()

	path := writeCatalog(t, "a.gsm\tfr_FR\tBonjour\n\nno-tabs-here.gsm\nb.gsm\ten\tOk\n")

	report, err := Check(path)
	require.NoError(t, err)
	require.Len(t, report.Problems, 2)

	assert.Equal(t, 1, report.Problems[0].Line)
	assert.Equal(t, KindUnknownLocale, report.Problems[0].Kind)
	assert.Contains(t, report.Problems[0].Detail, "fr_FR")

	assert.Equal(t, 3, report.Problems[1].Line)
	assert.Equal(t, KindMalformed, report.Problems[1].Kind)

	// Malformed lines take precedence over unknown locales
	err = report.Err()
	require.ErrorIs(t, err, catalog.ErrMalformedRecord)
	assert.Equal(t, publish.ExitMalformedRecord, publish.ExitCode(err))
}

func TestCheckUnknownLocaleOnly(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := Run(writeCatalog(t, "a.gsm\tde\tHallo\nb.gsm\ten\tHi\n"), &out)
	require.ErrorIs(t, err, locale.ErrUnknownLocale)
	assert.Equal(t, publish.ExitUnknownLocale, publish.ExitCode(err))
	assert.Contains(t, out.String(), "unknown_locale")
}

func TestCheckEmptyAndMissingCatalog(t *testing.T) {
	t.Parallel()

	err := Run(writeCatalog(t, "\n  \n"), &bytes.Buffer{})
	require.ErrorIs(t, err, catalog.ErrEmptyCatalog)

	err = Run(filepath.Join(t.TempDir(), "absent.txt"), &bytes.Buffer{})
	require.ErrorIs(t, err, catalog.ErrCatalogUnavailable)
	assert.Equal(t, publish.ExitCatalogUnavailable, publish.ExitCode(err))
}
