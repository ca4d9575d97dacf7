package publish

import (
	"fmt"

	"github.com/asterisksounds/asterisk-sound-bot/internal/catalog"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/locale"
)

// Stage is a state of the publish pipeline. A run moves strictly forward
// through Selecting, Fetching, Uploading, Describing and Posting to Done,
// or stops in Aborted at the first failure.
type Stage int

const (
	StageSelecting Stage = iota
	StageFetching
	StageUploading
	StageDescribing
	StagePosting
	StageDone
	StageAborted
)

var stageNames = [...]string{
	StageSelecting:  "selecting",
	StageFetching:   "fetching",
	StageUploading:  "uploading",
	StageDescribing: "describing",
	StagePosting:    "posting",
	StageDone:       "done",
	StageAborted:    "aborted",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalYAML renders the stage by name in reports.
func (s Stage) MarshalYAML() (any, error) {
	return s.String(), nil
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageAborted
}

// StageError records the stage a run aborted in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Failure names the error taxonomy entry of the aborted stage. A selection
// failure is named after its cause; other stages map one to one.
func (e *StageError) Failure() string {
	switch e.Stage {
	case StageFetching:
		return "FetchFailure"
	case StageUploading:
		return "UploadFailure"
	case StageDescribing:
		return "DescribeFailure"
	case StagePosting:
		return "PostFailure"
	}

	switch {
	case errors.Is(e.Err, catalog.ErrCatalogUnavailable):
		return "CatalogUnavailable"
	case errors.Is(e.Err, catalog.ErrEmptyCatalog):
		return "EmptyCatalog"
	case errors.Is(e.Err, catalog.ErrMalformedRecord):
		return "MalformedRecord"
	case errors.Is(e.Err, locale.ErrUnknownLocale):
		return "UnknownLocale"
	default:
		return "SelectionFailure"
	}
}
