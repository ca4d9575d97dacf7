package mastodon

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
)

// ErrProcessingTimeout is returned when uploaded media is not processed
// within the configured processing timeout.
var ErrProcessingTimeout = errors.NewStd("media processing timed out")

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mastodon: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("mastodon: HTTP %d: %s", e.StatusCode, e.Message)
}

// parseAPIError builds an APIError from resp. The message comes from the
// JSON "error" field, with "error_description" appended when present, or
// falls back to the status text for non-JSON bodies.
func parseAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		if obj, jsonErr := jason.NewObjectFromBytes(body); jsonErr == nil {
			if msg, e := obj.GetString("error"); e == nil {
				apiErr.Message = msg
			}
			if desc, e := obj.GetString("error_description"); e == nil && desc != "" {
				apiErr.Message = strings.TrimSpace(apiErr.Message + ": " + desc)
			}
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// handleNetworkError classifies transport failures for the log and the
// returned error text.
func handleNetworkError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		GetLogger().Warn("Network request timed out", logger.Error(err))
		return fmt.Errorf("request timed out: %w", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var dnsErr *net.DNSError
		if errors.As(urlErr.Err, &dnsErr) {
			GetLogger().Error("DNS resolution failed",
				logger.String("url", logger.RedactSensitiveData(urlErr.URL)),
				logger.Error(err))
			return fmt.Errorf("DNS resolution failed: %w", err)
		}
	}
	GetLogger().Error("Network error occurred", logger.Error(err))
	return fmt.Errorf("network error: %w", err)
}

// requestError wraps a failed API call. Transport failures are categorized
// as network errors, everything else with the operation's category.
func requestError(err error, category errors.ErrorCategory, operation, endpoint string) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) && !errors.Is(err, ErrProcessingTimeout) {
		var netErr net.Error
		var urlErr *url.Error
		if errors.As(err, &netErr) || errors.As(err, &urlErr) {
			category = errors.CategoryNetwork
		}
	}
	return errors.New(err).
		Component("mastodon").
		Category(category).
		Context("operation", operation).
		Context("endpoint", endpoint).
		Build()
}
