package publish

import (
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/asterisksounds/asterisk-sound-bot/internal/caption"
	"github.com/asterisksounds/asterisk-sound-bot/internal/catalog"
	"github.com/asterisksounds/asterisk-sound-bot/internal/locale"
	"github.com/asterisksounds/asterisk-sound-bot/internal/myaudio"
)

// Result records what a run did and how far it got.
type Result struct {
	RunID       uuid.UUID
	Stage       Stage
	FailedStage Stage // meaningful only when Stage is StageAborted
	DryRun      bool
	Record      catalog.Record
	Locale      locale.Locale
	Caption     caption.Caption
	MimeType    string
	Bytes       int
	Audio       myaudio.AudioInfo
	MediaID     string
	StatusID    string
	StatusURL   string
	PostedText  string // status content as rendered by the server, HTML removed
	StartedAt   time.Time
	FinishedAt  time.Time
	Timings     map[string]time.Duration
	Err         error
}

// Elapsed is the wall time of the run.
func (r *Result) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Report is the printable summary of a run.
type Report struct {
	RunID       string            `yaml:"run_id"`
	Stage       Stage             `yaml:"stage"`
	FailedStage string            `yaml:"failed_stage,omitempty"`
	Error       string            `yaml:"error,omitempty"`
	DryRun      bool              `yaml:"dry_run"`
	Record      catalog.Record    `yaml:"record"`
	Package     string            `yaml:"package"`
	FileName    string            `yaml:"file_name"`
	Locale      *locale.Locale    `yaml:"locale,omitempty"`
	Caption     *caption.Caption  `yaml:"caption,omitempty"`
	MimeType    string            `yaml:"mime_type,omitempty"`
	Bytes       int               `yaml:"bytes,omitempty"`
	Audio       *AudioReport      `yaml:"audio,omitempty"`
	MediaID     string            `yaml:"media_id,omitempty"`
	StatusURL   string            `yaml:"status_url,omitempty"`
	PostedText  string            `yaml:"posted_text,omitempty"`
	Timings     map[string]string `yaml:"timings,omitempty"`
}

// AudioReport summarizes the inspected sound.
type AudioReport struct {
	Format     string  `yaml:"format"`
	SampleRate int     `yaml:"sample_rate,omitempty"`
	Channels   int     `yaml:"channels,omitempty"`
	BitDepth   int     `yaml:"bit_depth,omitempty"`
	Duration   string  `yaml:"duration,omitempty"`
	PeakDBFS   float64 `yaml:"peak_dbfs,omitempty"`
}

// Report builds the summary of the run.
func (r *Result) Report() Report {
	rep := Report{
		RunID:      r.RunID.String(),
		Stage:      r.Stage,
		DryRun:     r.DryRun,
		Record:     r.Record,
		MimeType:   r.MimeType,
		Bytes:      r.Bytes,
		MediaID:    r.MediaID,
		StatusURL:  r.StatusURL,
		PostedText: r.PostedText,
	}
	if r.Record.Path != "" {
		rep.Package = r.Record.PackageName()
		rep.FileName = r.Record.DisplayFileName()
	}
	if r.Stage == StageAborted {
		rep.FailedStage = r.FailedStage.String()
		if r.Err != nil {
			rep.Error = r.Err.Error()
		}
	}
	if r.Locale.Code != "" {
		loc := r.Locale
		rep.Locale = &loc
	}
	if r.Caption.StatusText != "" {
		c := r.Caption
		rep.Caption = &c
	}
	if r.Audio.Format != "" {
		rep.Audio = &AudioReport{
			Format:     r.Audio.Format,
			SampleRate: r.Audio.SampleRate,
			Channels:   r.Audio.NumChannels,
			BitDepth:   r.Audio.BitDepth,
			PeakDBFS:   r.Audio.PeakDBFS,
		}
		if r.Audio.Duration > 0 {
			rep.Audio.Duration = r.Audio.Duration.String()
		}
	}
	if len(r.Timings) > 0 {
		rep.Timings = make(map[string]string, len(r.Timings))
		for stage, d := range r.Timings {
			rep.Timings[stage] = d.String()
		}
	}
	return rep
}

// YAML renders the run report.
func (r *Result) YAML() ([]byte, error) {
	return yaml.Marshal(r.Report())
}
