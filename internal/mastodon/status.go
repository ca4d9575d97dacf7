package mastodon

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
	"github.com/asterisksounds/asterisk-sound-bot/internal/observability/metrics"
)

const statusesPath = "/api/v1/statuses"

// CreateStatus posts a status referencing already uploaded media.
func (c *Client) CreateStatus(ctx context.Context, post StatusPost) (_ *Status, err error) {
	defer func(start time.Time) { c.observe(metrics.OpStatusCreate, start, err) }(time.Now())

	form := url.Values{"status": {post.Text}}
	for _, id := range post.MediaIDs {
		form.Add("media_ids[]", id)
	}
	if post.Visibility != "" {
		form.Set("visibility", post.Visibility)
	}
	if post.Language != "" {
		form.Set("language", post.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(statusesPath), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, requestError(err, errors.CategoryStatusPost, "create_status", statusesPath)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if post.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", post.IdempotencyKey)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, requestError(handleNetworkError(err), errors.CategoryStatusPost, "create_status", statusesPath)
	}

	var status Status
	if err := decodeResponse(resp, &status); err != nil {
		return nil, requestError(err, errors.CategoryStatusPost, "create_status", statusesPath)
	}

	GetLogger().Debug("Status created",
		logger.String("status_id", status.ID),
		logger.String("url", status.URL),
		logger.String("visibility", status.Visibility))
	return &status, nil
}
