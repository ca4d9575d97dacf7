// Package post implements the command that publishes one random sound.
package post

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/asterisksounds/asterisk-sound-bot/internal/buildinfo"
	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
	"github.com/asterisksounds/asterisk-sound-bot/internal/mastodon"
	"github.com/asterisksounds/asterisk-sound-bot/internal/notify"
	"github.com/asterisksounds/asterisk-sound-bot/internal/observability"
	"github.com/asterisksounds/asterisk-sound-bot/internal/publish"
	"github.com/asterisksounds/asterisk-sound-bot/internal/storage"
)

// Side effects that run after the pipeline get their own budget, so a
// canceled run can still be reported.
const reportTimeout = 15 * time.Second

// Command returns the post subcommand.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "post",
		Short: "Post a random sound from the catalog",
		Long: `Pick a random line from the sound catalog, fetch the sound from the
object store, upload it to Mastodon with its alt text and post it.

With --dry-run the sound is selected and fetched but nothing is published;
a YAML report of what would have been posted is printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := conf.GetSettings()
			if settings == nil {
				return errors.Newf("settings not loaded").Category(errors.CategoryConfiguration).Build()
			}
			return Run(cmd.Context(), settings, cmd.OutOrStdout())
		},
	}
}

// Run executes one publish run with settings and writes the dry-run report
// to out.
func Run(ctx context.Context, settings *conf.Settings, out io.Writer) error {
	log := logger.Global().Module("post")

	if !settings.DryRun {
		if err := conf.ValidatePublishing(settings); err != nil {
			return errors.New(err).
				Component("post").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}

	log.Info("🤖 Asterisk Sound Bot Startup",
		logger.String("version", buildinfo.Current().GetVersion()),
		logger.String("instance", settings.Mastodon.Instance),
		logger.String("bucket", settings.Storage.Bucket),
		logger.String("backend", settings.Storage.Backend),
		logger.Bool("dry_run", settings.DryRun))

	store, err := storage.New(ctx, &settings.Storage)
	if err != nil {
		return err
	}

	runMetrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	var social publish.SocialClient
	if !settings.DryRun {
		cfg := mastodon.ConfigFromSettings(&settings.Mastodon)
		cfg.Recorder = runMetrics.API
		client, err := mastodon.New(&cfg)
		if err != nil {
			return err
		}
		defer client.Close()
		social = client
	}

	pipeline := publish.NewPipeline(publish.ConfigFromSettings(settings), store, social)
	res, runErr := pipeline.Run(ctx)

	if settings.DryRun && runErr == nil {
		report, err := res.YAML()
		if err != nil {
			return fmt.Errorf("error rendering report: %w", err)
		}
		if _, err := out.Write(report); err != nil {
			return fmt.Errorf("error writing report: %w", err)
		}
	}

	reportOutcome(context.WithoutCancel(ctx), settings, runMetrics, res, runErr)
	return runErr
}

// reportOutcome sends notifications and pushes metrics. Failures are only
// logged.
func reportOutcome(ctx context.Context, settings *conf.Settings, runMetrics *observability.Metrics, res *publish.Result, runErr error) {
	log := logger.Global().Module("post")

	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	dispatcher := notify.FromSettings(&settings.Notify)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			log.Warn("Failed to close notifiers", logger.Error(err))
		}
	}()
	if err := dispatcher.Dispatch(ctx, notify.EventFromResult(res, runErr)); err != nil {
		log.Warn("Some notifications failed", logger.Error(err))
	}

	runMetrics.RecordRun(res, runErr)
	if settings.Metrics.PushGateway != "" {
		if err := runMetrics.Push(ctx, settings.Metrics.PushGateway, settings.Metrics.Job); err != nil {
			log.Warn("Failed to push metrics", logger.Error(err))
		}
	}
}
