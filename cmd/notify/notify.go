package notify

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	notifier "github.com/asterisksounds/asterisk-sound-bot/internal/notify"
)

// Command returns a cobra command that sends a test event to the configured
// notification targets
func Command() *cobra.Command {
	var (
		failed bool
		path   string
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test run notification to the configured targets",
		Long: `Send a test run notification through every configured shoutrrr URL
and the MQTT broker.

Examples:
  # Notification for a successful post
  asterisk-sound-bot notify

  # Notification for a failed run, useful with notify.onlyfailures
  asterisk-sound-bot notify --failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := conf.GetSettings()
			if settings == nil {
				return errors.Newf("settings not loaded").Category(errors.CategoryConfiguration).Build()
			}
			return Send(cmd.Context(), &settings.Notify, TestEvent(failed, path), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&failed, "failed", false, "Send an aborted-run event instead of a posted one")
	cmd.Flags().StringVar(&path, "path", "asterisk-core-sounds-en-gsm/hello-world.gsm", "Sound path shown in the test event")

	return cmd
}

// TestEvent builds a synthetic run event.
func TestEvent(failed bool, path string) notifier.Event {
	ev := notifier.Event{
		RunID:    uuid.NewString(),
		Outcome:  notifier.OutcomePosted,
		Path:     path,
		Locale:   "en",
		Elapsed:  1500 * time.Millisecond,
		Time:     time.Now(),
		ExitCode: 0,
	}
	if failed {
		ev.Outcome = notifier.OutcomeAborted
		ev.FailedStage = "posting"
		ev.Failure = "PostFailure"
		ev.Error = "test notification, nothing was posted"
		ev.ExitCode = 32
	} else {
		ev.StatusURL = "https://mastodon.example/@soundbot/0"
	}
	return ev
}

// Send dispatches ev to the targets in settings and reports how many were
// reached.
func Send(ctx context.Context, settings *conf.NotifySettings, ev notifier.Event, out io.Writer) error {
	dispatcher := notifier.FromSettings(settings)
	defer dispatcher.Close()

	if dispatcher.Len() == 0 {
		return errors.Newf("no notification targets configured").
			Component("notify").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.OnlyFailures && !ev.Failed() {
		fmt.Fprintln(out, "Only failures are notified, use --failed to send a test event")
		return nil
	}

	if err := dispatcher.Dispatch(ctx, ev); err != nil {
		return err
	}
	fmt.Fprintf(out, "Notification sent: run=%s outcome=%s targets=%d\n", ev.RunID, ev.Outcome, dispatcher.Len())
	return nil
}
