package publish

import (
	"github.com/asterisksounds/asterisk-sound-bot/internal/catalog"
	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/locale"
)

// Process exit codes.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitConfig             = 2
	ExitCatalogUnavailable = 10
	ExitEmptyCatalog       = 11
	ExitMalformedRecord    = 12
	ExitUnknownLocale      = 13
	ExitFetchFailure       = 20
	ExitUploadFailure      = 30
	ExitDescribeFailure    = 31
	ExitPostFailure        = 32
)

// ExitCode maps a run error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	switch {
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		return ExitCatalogUnavailable
	case errors.Is(err, catalog.ErrEmptyCatalog):
		return ExitEmptyCatalog
	case errors.Is(err, catalog.ErrMalformedRecord):
		return ExitMalformedRecord
	case errors.Is(err, locale.ErrUnknownLocale):
		return ExitUnknownLocale
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		switch stageErr.Stage {
		case StageFetching:
			return ExitFetchFailure
		case StageUploading:
			return ExitUploadFailure
		case StageDescribing:
			return ExitDescribeFailure
		case StagePosting:
			return ExitPostFailure
		}
	}

	var validationErr conf.ValidationError
	if errors.As(err, &validationErr) || errors.IsCategory(err, errors.CategoryConfiguration) {
		return ExitConfig
	}

	return ExitFailure
}
