// Package catalog loads the sound catalog and parses its tab-separated records.
//
// Each catalog line has the form
//
//	<path>\t<locale code>\t<transcription>
//
// where path is the object key of the sound in the object store.
package catalog

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	ErrCatalogUnavailable = errors.NewStd("catalog unavailable")
	ErrEmptyCatalog       = errors.NewStd("catalog is empty")
	ErrMalformedRecord    = errors.NewStd("malformed catalog record")
)

const (
	fieldSeparator   = "\t"
	packageSeparator = "-"
	packageSegments  = 3
)

// Record is one parsed catalog line.
type Record struct {
	Path          string `yaml:"path"`          // object store key
	LocaleCode    string `yaml:"locale"`        // e.g. en_GB
	Transcription string `yaml:"transcription"` // what the prompt says
}

// Source picks an index in [0, n). *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// globalSource draws from the auto-seeded package-level generator.
type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultSource returns the process-wide random source.
func DefaultSource() Source { return globalSource{} }

// Load reads the catalog file and returns its raw lines.
func Load(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.New(fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)).
			Component("catalog").
			Category(errors.CategoryCatalog).
			FileContext(filePath, 0).
			Context("operation", "open_catalog").
			Build()
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	// Transcriptions are short, but do not choke on an unexpectedly long line
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)).
			Component("catalog").
			Category(errors.CategoryCatalog).
			FileContext(filePath, 0).
			Context("operation", "read_catalog").
			Build()
	}

	return lines, nil
}

// NonEmpty returns the trimmed lines that contain anything besides whitespace.
func NonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// PickRandom returns one trimmed non-empty line chosen uniformly with src.
func PickRandom(lines []string, src Source) (string, error) {
	candidates := NonEmpty(lines)
	if len(candidates) == 0 {
		return "", errors.New(ErrEmptyCatalog).
			Component("catalog").
			Category(errors.CategoryCatalog).
			Context("line_count", len(lines)).
			Build()
	}
	if src == nil {
		src = DefaultSource()
	}
	return candidates[src.IntN(len(candidates))], nil
}

// Parse splits a catalog line into a Record. Path and locale are mandatory;
// any fields after the locale are concatenated into the transcription.
func Parse(line string) (Record, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) < 2 {
		return Record{}, errors.New(fmt.Errorf("%w: expected at least 2 tab-separated fields, got %d",
			ErrMalformedRecord, len(fields))).
			Component("catalog").
			Category(errors.CategoryRecordParsing).
			Build()
	}

	return Record{
		Path:          fields[0],
		LocaleCode:    fields[1],
		Transcription: strings.Join(fields[2:], ""),
	}, nil
}

// PackageName derives the source package of the sound. Paths with at least
// three hyphen-separated segments yield the first three, e.g.
// "asterisk-extra-sounds-en/foo.gsm" gives "asterisk-extra-sounds".
// Otherwise the directory part of the path is used, or "" if there is none.
func (r Record) PackageName() string {
	segments := strings.Split(r.Path, packageSeparator)
	if len(segments) >= packageSegments {
		return strings.Join(segments[:packageSegments], packageSeparator)
	}
	idx := strings.LastIndex(r.Path, "/")
	if idx < 0 {
		return ""
	}
	dir := r.Path[:idx+1]
	if strings.Trim(dir, "/") == "" {
		return dir // only slashes, e.g. "/" for a rooted path
	}
	return strings.TrimRight(dir, "/")
}

// DisplayFileName is the base name of the path with a trailing .mp3
// shown as .wav, the format of the original sound archives.
func (r Record) DisplayFileName() string {
	base := r.Path[strings.LastIndex(r.Path, "/")+1:]
	if stem, found := strings.CutSuffix(base, ".mp3"); found {
		return stem + ".wav"
	}
	return base
}
