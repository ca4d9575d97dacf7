// Package notify reports run outcomes to operators through shoutrrr services
// and MQTT. Notification failures are logged and never change the outcome of
// a run.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
	"github.com/asterisksounds/asterisk-sound-bot/internal/privacy"
	"github.com/asterisksounds/asterisk-sound-bot/internal/publish"
)

// Outcome summarizes how a run ended.
type Outcome string

const (
	OutcomePosted  Outcome = "posted"
	OutcomeDryRun  Outcome = "dry-run"
	OutcomeAborted Outcome = "aborted"
)

// Event is the notification payload for one run.
type Event struct {
	RunID       string        `json:"run_id"`
	Outcome     Outcome       `json:"outcome"`
	FailedStage string        `json:"failed_stage,omitempty"`
	Failure     string        `json:"failure,omitempty"`
	Error       string        `json:"error,omitempty"`
	ExitCode    int           `json:"exit_code"`
	Path        string        `json:"path,omitempty"`
	Locale      string        `json:"locale,omitempty"`
	MediaID     string        `json:"media_id,omitempty"`
	StatusURL   string        `json:"status_url,omitempty"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Time        time.Time     `json:"time"`
}

// EventFromResult builds the event for a finished run. err is the error
// returned by the run, if any.
func EventFromResult(res *publish.Result, err error) Event {
	ev := Event{
		RunID:     res.RunID.String(),
		Outcome:   OutcomePosted,
		ExitCode:  publish.ExitCode(err),
		Path:      res.Record.Path,
		Locale:    res.Locale.Code,
		MediaID:   res.MediaID,
		StatusURL: res.StatusURL,
		Elapsed:   res.Elapsed(),
		Time:      res.FinishedAt,
	}
	if res.DryRun {
		ev.Outcome = OutcomeDryRun
	}
	if err != nil {
		ev.Outcome = OutcomeAborted
		ev.FailedStage = res.FailedStage.String()
		ev.Error = privacy.ScrubMessage(err.Error())
		var stageErr *publish.StageError
		if errors.As(err, &stageErr) {
			ev.Failure = stageErr.Failure()
		}
	}
	return ev
}

// Failed reports whether the run aborted.
func (e Event) Failed() bool {
	return e.Outcome == OutcomeAborted
}

// Title is a one-line summary.
func (e Event) Title() string {
	if e.Failed() {
		return fmt.Sprintf("❌ Asterisk sound bot run failed while %s", e.FailedStage)
	}
	if e.Outcome == OutcomeDryRun {
		return "🧪 Asterisk sound bot dry run finished"
	}
	return "✅ Asterisk sound bot posted a sound"
}

// Message is the human readable body.
func (e Event) Message() string {
	var b strings.Builder
	if e.Path != "" {
		fmt.Fprintf(&b, "Sound: %s (%s)\n", e.Path, e.Locale)
	}
	if e.StatusURL != "" {
		fmt.Fprintf(&b, "Status: %s\n", e.StatusURL)
	}
	if e.Failed() {
		fmt.Fprintf(&b, "Failure: %s (exit code %d)\nError: %s\n", e.Failure, e.ExitCode, e.Error)
	}
	fmt.Fprintf(&b, "Run: %s", e.RunID)
	return b.String()
}

// Notifier delivers run events.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
	Close() error
}

// Dispatcher fans an event out to all notifiers.
type Dispatcher struct {
	notifiers    []Notifier
	timeout      time.Duration
	onlyFailures bool
	log          logger.Logger
}

// NewDispatcher creates a dispatcher for the given notifiers.
func NewDispatcher(timeout time.Duration, onlyFailures bool, notifiers ...Notifier) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		notifiers:    notifiers,
		timeout:      timeout,
		onlyFailures: onlyFailures,
		log:          GetLogger(),
	}
}

// FromSettings creates the notifiers configured in settings. A notifier that
// fails to initialize is logged and skipped.
func FromSettings(settings *conf.NotifySettings) *Dispatcher {
	log := GetLogger()
	var notifiers []Notifier

	if len(settings.URLs) > 0 {
		n, err := NewShoutrrrNotifier(settings.URLs, settings.Timeout)
		if err != nil {
			log.Warn("Shoutrrr notifier disabled", logger.Error(err))
		} else {
			notifiers = append(notifiers, n)
		}
	}
	if settings.MQTT.Broker != "" {
		notifiers = append(notifiers, NewMQTTNotifier(&settings.MQTT))
	}

	return NewDispatcher(settings.Timeout, settings.OnlyFailures, notifiers...)
}

// Len returns the number of notifiers.
func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}

// Dispatch sends ev to every notifier concurrently and waits for all of them.
// Failures are logged and returned joined, for the caller to ignore.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	if len(d.notifiers) == 0 || (d.onlyFailures && !ev.Failed()) {
		return nil
	}

	errs := make([]error, len(d.notifiers))
	var g errgroup.Group
	for i, n := range d.notifiers {
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			if err := n.Notify(sendCtx, ev); err != nil {
				errs[i] = errors.New(privacy.WrapError(err)).
					Component("notify").
					Category(errors.CategoryNotification).
					Context("notifier", n.Name()).
					Build()
				d.log.Warn("Notification failed",
					logger.String("notifier", n.Name()),
					logger.Error(errs[i]))
				return nil
			}
			d.log.Debug("Notification sent", logger.String("notifier", n.Name()))
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// Close releases all notifiers.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, n := range d.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetLogger returns the notify package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("notify")
}
