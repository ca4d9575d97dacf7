package notify

import (
	"context"
	"io"
	"log"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/privacy"
)

// ShoutrrrNotifier sends events to one or more shoutrrr service URLs
// through a single router.
type ShoutrrrNotifier struct {
	sender *router.ServiceRouter
}

// NewShoutrrrNotifier validates urls and builds the sender.
func NewShoutrrrNotifier(urls []string, timeout time.Duration) (*ShoutrrrNotifier, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notify").
			Category(errors.CategoryConfiguration).
			Build()
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		// URLs carry service tokens
		return nil, privacy.WrapError(err)
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &ShoutrrrNotifier{sender: sender}, nil
}

func (s *ShoutrrrNotifier) Name() string { return "shoutrrr" }

// Notify sends the event message with its title. The router applies its
// own timeout, so ctx is only checked before sending.
func (s *ShoutrrrNotifier) Notify(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	params.SetTitle(ev.Title())

	for _, err := range s.sender.Send(ev.Message(), &params) {
		if err != nil {
			return privacy.WrapError(err)
		}
	}
	return nil
}

func (s *ShoutrrrNotifier) Close() error { return nil }
