// Package mastodon is a small Mastodon API client covering what the bot
// needs: media upload with processing wait, media descriptions and statuses.
//
// The client never retries. Each operation makes one request, except that a
// synchronous upload polls the media until it is processed.
package mastodon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/httpclient"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
	"github.com/asterisksounds/asterisk-sound-bot/internal/observability/metrics"
)

// Config configures a Client.
type Config struct {
	Instance          string        // base URL, e.g. https://botsin.space
	AccessToken       string        // OAuth bearer token of the bot account
	UserAgent         string        // defaults to the application name
	RequestTimeout    time.Duration // per request
	PollInterval      time.Duration // media processing poll pacing
	ProcessingTimeout time.Duration // upper bound of a synchronous upload's wait

	// Recorder receives per-operation API metrics, if set.
	Recorder metrics.Recorder

	// Transport overrides the HTTP transport, for tests.
	Transport http.RoundTripper
}

// ConfigFromSettings maps the loaded settings onto a client Config.
func ConfigFromSettings(settings *conf.MastodonSettings) Config {
	return Config{
		Instance:          settings.Instance,
		AccessToken:       settings.AccessToken,
		UserAgent:         settings.UserAgent,
		RequestTimeout:    settings.RequestTimeout,
		PollInterval:      settings.PollInterval,
		ProcessingTimeout: settings.ProcessingTimeout,
	}
}

// Client talks to one Mastodon instance as one account.
type Client struct {
	baseURL           string
	http              *httpclient.Client
	pollInterval      time.Duration
	processingTimeout time.Duration
	recorder          metrics.Recorder
}

// New validates cfg and creates a client.
func New(cfg *Config) (*Client, error) {
	u, err := url.Parse(cfg.Instance)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Newf("mastodon: invalid instance URL %q", cfg.Instance).
			Component("mastodon").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.Newf("mastodon: access token is required").
			Component("mastodon").
			Category(errors.CategoryConfiguration).
			Build()
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = conf.AppName
	}

	c := &Client{
		baseURL:           strings.TrimRight(u.String(), "/"),
		pollInterval:      cfg.PollInterval,
		processingTimeout: cfg.ProcessingTimeout,
		recorder:          cfg.Recorder,
		http: httpclient.New(&httpclient.Config{
			DefaultTimeout: cfg.RequestTimeout,
			UserAgent:      userAgent,
			BearerToken:    cfg.AccessToken,
			Transport:      cfg.Transport,
		}),
	}
	if c.pollInterval <= 0 {
		c.pollInterval = conf.DefaultPollInterval
	}
	if c.processingTimeout <= 0 {
		c.processingTimeout = conf.DefaultProcessingTimeout
	}

	c.http.SetBeforeRequestHook(tagRequest)
	c.http.SetAfterResponseHook(logResponse)
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.Close()
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

// requestIDHeader correlates a request with the instance's own logs.
const requestIDHeader = "X-Request-Id"

// tagRequest gives every API request a unique request ID.
func tagRequest(req *http.Request) {
	if req.Header.Get(requestIDHeader) == "" {
		req.Header.Set(requestIDHeader, uuid.NewString())
	}
}

// logResponse logs every API exchange at debug level. Query strings are
// dropped; the token only travels in a header.
func logResponse(req *http.Request, resp *http.Response, err error) {
	fields := []logger.Field{
		logger.String("method", req.Method),
		logger.String("path", req.URL.Path),
		logger.String("request_id", req.Header.Get(requestIDHeader)),
	}
	if err != nil {
		GetLogger().Debug("API request failed", append(fields, logger.Error(err))...)
		return
	}
	GetLogger().Debug("API response", append(fields, logger.Int("status", resp.StatusCode))...)
}

// observe records the outcome of one API operation.
func (c *Client) observe(operation string, start time.Time, err error) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordDuration(operation, time.Since(start).Seconds())
	if err == nil {
		c.recorder.RecordOperation(operation, metrics.StatusSuccess)
		return
	}
	c.recorder.RecordOperation(operation, metrics.StatusError)
	c.recorder.RecordError(operation, errorType(err))
}

// errorType classifies err for metric labels.
func errorType(err error) string {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return fmt.Sprintf("http_%d", apiErr.StatusCode)
	case errors.Is(err, ErrProcessingTimeout):
		return "processing_timeout"
	case errors.IsCategory(err, errors.CategoryNetwork):
		return "network"
	default:
		return "other"
	}
}

// decodeResponse closes resp and decodes a 2xx body into out. Other
// statuses become *APIError.
func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mastodon: failed to decode response: %w", err)
	}
	return nil
}
