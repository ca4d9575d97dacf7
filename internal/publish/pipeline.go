// Package publish runs one bot invocation: pick a random catalog record,
// fetch its sound, upload it, describe it and post it.
//
// The run is strictly sequential and aborts at the first failure without
// retries or cleanup. Media uploaded before a failed describe or post stays
// orphaned on the server; retrying could post twice.
package publish

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asterisksounds/asterisk-sound-bot/internal/caption"
	"github.com/asterisksounds/asterisk-sound-bot/internal/catalog"
	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/locale"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
	"github.com/asterisksounds/asterisk-sound-bot/internal/mastodon"
	"github.com/asterisksounds/asterisk-sound-bot/internal/myaudio"
)

// ObjectStore fetches sound objects.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// SocialClient publishes media and statuses.
type SocialClient interface {
	UploadMedia(ctx context.Context, upload mastodon.MediaUpload) (*mastodon.Attachment, error)
	UpdateMediaDescription(ctx context.Context, mediaID, description string) (*mastodon.Attachment, error)
	CreateStatus(ctx context.Context, post mastodon.StatusPost) (*mastodon.Status, error)
}

// Config holds everything a run needs besides its collaborators.
type Config struct {
	CatalogPath string
	Bucket      string
	DryRun      bool
	Visibility  string
	SetLanguage bool // send the record's ISO 639 language with the status
}

// ConfigFromSettings builds the pipeline configuration from loaded settings.
func ConfigFromSettings(settings *conf.Settings) Config {
	return Config{
		CatalogPath: settings.Catalog.Path,
		Bucket:      settings.Storage.Bucket,
		DryRun:      settings.DryRun,
		Visibility:  settings.Mastodon.Visibility,
		SetLanguage: settings.Mastodon.SetLanguage,
	}
}

// Pipeline is a single-use publish run.
type Pipeline struct {
	cfg    Config
	store  ObjectStore
	social SocialClient
	source catalog.Source
	log    logger.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSource sets the random source used to pick the catalog line.
func WithSource(src catalog.Source) Option {
	return func(p *Pipeline) { p.source = src }
}

// WithLogger replaces the package logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithClock replaces time.Now for stage timings.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithRunID fixes the run ID instead of generating a random one.
func WithRunID(id uuid.UUID) Option {
	return func(p *Pipeline) { p.newID = func() uuid.UUID { return id } }
}

// NewPipeline creates a pipeline. social may be nil for dry runs.
func NewPipeline(cfg Config, store ObjectStore, social SocialClient, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		store:  store,
		social: social,
		source: catalog.DefaultSource(),
		log:    GetLogger(),
		now:    time.Now,
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg.Visibility == "" {
		p.cfg.Visibility = conf.DefaultVisibility
	}
	return p
}

// run carries the state of one Run call.
type run struct {
	*Pipeline
	ctx        context.Context
	log        logger.Logger
	result     *Result
	stageStart time.Time
	data       []byte // fetched sound, released after upload
}

// Run executes the pipeline. The returned Result is never nil and records
// how far the run got; err is a *StageError when the run aborted.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	id := p.newID()
	ctx = logger.WithTraceID(ctx, id.String())

	r := &run{
		Pipeline: p,
		ctx:      ctx,
		log:      p.log.WithContext(ctx),
		result: &Result{
			RunID:     id,
			DryRun:    p.cfg.DryRun,
			StartedAt: p.now(),
			Timings:   make(map[string]time.Duration),
		},
	}

	steps := []struct {
		stage Stage
		fn    func() error
	}{
		{StageSelecting, r.selectRecord},
		{StageFetching, r.fetch},
		{StageUploading, r.upload},
		{StageDescribing, r.describe},
		{StagePosting, r.post},
	}

	for _, step := range steps {
		if p.cfg.DryRun && step.stage == StageUploading {
			r.log.Info("Dry run, not publishing",
				logger.String("path", r.result.Record.Path),
				logger.String("mime_type", r.result.MimeType))
			break
		}
		if err := r.enter(step.stage, step.fn); err != nil {
			return r.result, err
		}
	}

	r.result.Stage = StageDone
	r.result.FinishedAt = p.now()
	return r.result, nil
}

// enter runs one stage, records its timing and aborts on error.
func (r *run) enter(stage Stage, fn func() error) error {
	r.result.Stage = stage
	r.stageStart = r.now()

	if err := r.ctx.Err(); err != nil {
		return r.abort(stage, err)
	}

	err := fn()
	r.result.Timings[stage.String()] = r.now().Sub(r.stageStart)
	if err != nil {
		return r.abort(stage, err)
	}
	return nil
}

func (r *run) abort(stage Stage, err error) error {
	stageErr := &StageError{Stage: stage, Err: err}
	r.result.Stage = StageAborted
	r.result.FailedStage = stage
	r.result.FinishedAt = r.now()
	r.result.Err = stageErr

	r.log.Error("Run aborted",
		logger.String("stage", stage.String()),
		logger.String("failure", stageErr.Failure()),
		logger.Error(err))
	return stageErr
}

// selectRecord picks, parses and validates a catalog record, then composes
// its caption. Nothing outside the process is touched.
func (r *run) selectRecord() error {
	lines, err := catalog.Load(r.cfg.CatalogPath)
	if err != nil {
		return err
	}
	line, err := catalog.PickRandom(lines, r.source)
	if err != nil {
		return err
	}
	record, err := catalog.Parse(line)
	if err != nil {
		return err
	}
	loc, err := locale.Resolve(record.LocaleCode)
	if err != nil {
		return err
	}

	r.result.Record = record
	r.result.Locale = loc
	r.result.Caption = caption.Compose(record, loc)
	r.result.MimeType = myaudio.MimeType(record.Path)

	r.log.Info("Selected sound",
		logger.String("path", record.Path),
		logger.String("locale", loc.Code),
		logger.String("package", record.PackageName()))
	return nil
}

func (r *run) fetch() error {
	data, err := r.store.Get(r.ctx, r.cfg.Bucket, r.result.Record.Path)
	if err != nil {
		return err
	}
	r.data = data
	r.result.Bytes = len(data)

	info, err := myaudio.Inspect(data)
	if err != nil {
		r.log.Warn("Could not inspect audio", logger.Error(err))
	}
	r.result.Audio = info

	r.log.Info("Fetched sound",
		logger.String("bucket", r.cfg.Bucket),
		logger.Int("bytes", len(data)),
		logger.String("format", info.Format),
		logger.Duration("duration", info.Duration))
	return nil
}

// uploadFileName keeps the stem of the object key and uses the extension of
// the declared content type.
func uploadFileName(key, mimeType string) string {
	base := path.Base(key)
	stem := strings.TrimSuffix(base, path.Ext(base))
	return stem + "." + myaudio.GetFileExtension(mimeType)
}

func (r *run) upload() error {
	if r.social == nil {
		return errors.Newf("no social client configured").
			Component("publish").
			Category(errors.CategoryConfiguration).
			Build()
	}

	attachment, err := r.social.UploadMedia(r.ctx, mastodon.MediaUpload{
		Data:        r.data,
		FileName:    uploadFileName(r.result.Record.Path, r.result.MimeType),
		MimeType:    r.result.MimeType,
		Synchronous: true,
	})
	if err != nil {
		return err
	}
	r.data = nil
	r.result.MediaID = attachment.ID
	return nil
}

func (r *run) describe() error {
	_, err := r.social.UpdateMediaDescription(r.ctx, r.result.MediaID, r.result.Caption.AltText)
	return err
}

func (r *run) post() error {
	post := mastodon.StatusPost{
		Text:           r.result.Caption.StatusText,
		MediaIDs:       []string{r.result.MediaID},
		Visibility:     r.cfg.Visibility,
		IdempotencyKey: r.result.RunID.String(),
	}
	if r.cfg.SetLanguage {
		post.Language = r.result.Locale.Language()
	}

	status, err := r.social.CreateStatus(r.ctx, post)
	if err != nil {
		return err
	}
	r.result.StatusID = status.ID
	r.result.StatusURL = status.URL
	r.result.PostedText = status.PlainText()

	r.log.Info("✅ Posted to Mastodon",
		logger.String("status_url", status.URL),
		logger.String("media_id", r.result.MediaID),
		logger.String("text", r.result.PostedText))
	return nil
}
