// Package check implements the command that validates the sound catalog
// without touching storage or the network.
package check

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/asterisksounds/asterisk-sound-bot/internal/catalog"
	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/locale"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
)

// Problem is one catalog line that cannot be posted.
type Problem struct {
	Line   int    `yaml:"line"`
	Kind   string `yaml:"kind"`
	Detail string `yaml:"detail"`
	Text   string `yaml:"text"`
}

// Problem kinds.
const (
	KindMalformed     = "malformed"
	KindUnknownLocale = "unknown_locale"
)

// Report summarizes a catalog check.
type Report struct {
	Path      string         `yaml:"path"`
	Lines     int            `yaml:"lines"`
	Records   int            `yaml:"records"`
	ByLocale  map[string]int `yaml:"by_locale"`
	ByPackage map[string]int `yaml:"by_package"`
	Problems  []Problem      `yaml:"problems,omitempty"`
}

// Command returns the check subcommand.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate every line of the sound catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := conf.GetSettings()
			if settings == nil {
				return errors.Newf("settings not loaded").Category(errors.CategoryConfiguration).Build()
			}
			return Run(settings.Catalog.Path, cmd.OutOrStdout())
		},
	}
}

// Run checks the catalog at path, writes the YAML report to out and returns
// the error for the most severe class of problem found.
func Run(path string, out io.Writer) error {
	report, err := Check(path)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("error rendering report: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}

	log := logger.Global().Module("check")
	for _, p := range report.Problems {
		log.Warn("Catalog problem",
			logger.Int("line", p.Line),
			logger.String("kind", p.Kind),
			logger.String("detail", p.Detail))
	}
	log.Info("Catalog checked",
		logger.Int("records", report.Records),
		logger.Int("problems", len(report.Problems)))

	return report.Err()
}

// Check parses every non-empty line of the catalog at path and resolves its
// locale. Line numbers are 1-based and count blank lines.
func Check(path string) (*Report, error) {
	lines, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Path:      path,
		Lines:     len(lines),
		ByLocale:  make(map[string]int),
		ByPackage: make(map[string]int),
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		record, err := catalog.Parse(trimmed)
		if err != nil {
			report.Problems = append(report.Problems, Problem{
				Line: i + 1, Kind: KindMalformed, Detail: err.Error(), Text: trimmed,
			})
			continue
		}
		if _, err := locale.Resolve(record.LocaleCode); err != nil {
			report.Problems = append(report.Problems, Problem{
				Line:   i + 1,
				Kind:   KindUnknownLocale,
				Detail: fmt.Sprintf("unknown locale %q, known: %s", record.LocaleCode, strings.Join(locale.Codes(), ", ")),
				Text:   trimmed,
			})
			continue
		}

		report.Records++
		report.ByLocale[record.LocaleCode]++
		report.ByPackage[record.PackageName()]++
	}

	return report, nil
}

// Err returns nil for a clean catalog. Otherwise it wraps
// catalog.ErrMalformedRecord if any line is malformed, else
// locale.ErrUnknownLocale. A catalog without records is ErrEmptyCatalog.
func (r *Report) Err() error {
	var malformed, unknown int
	for _, p := range r.Problems {
		switch p.Kind {
		case KindMalformed:
			malformed++
		case KindUnknownLocale:
			unknown++
		}
	}

	switch {
	case malformed > 0:
		return fmt.Errorf("%w: %d malformed line(s) in %s", catalog.ErrMalformedRecord, malformed, r.Path)
	case unknown > 0:
		return fmt.Errorf("%w: %d line(s) with unknown locale in %s", locale.ErrUnknownLocale, unknown, r.Path)
	case r.Records == 0:
		return fmt.Errorf("%w: %s", catalog.ErrEmptyCatalog, r.Path)
	}
	return nil
}
