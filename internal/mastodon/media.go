package mastodon

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
	"github.com/asterisksounds/asterisk-sound-bot/internal/observability/metrics"
)

const (
	mediaUploadPath = "/api/v2/media"
	mediaPath       = "/api/v1/media/"
)

// UploadMedia uploads an audio file. With Synchronous set it only returns
// once the server reports the media as processed.
func (c *Client) UploadMedia(ctx context.Context, upload MediaUpload) (_ *Attachment, err error) {
	start := time.Now()
	defer func() { c.observe(metrics.OpMediaUpload, start, err) }()

	body, contentType, err := multipartBody(upload)
	if err != nil {
		return nil, requestError(err, errors.CategoryMediaUpload, "upload_media", mediaUploadPath)
	}

	resp, err := c.http.Post(ctx, c.endpoint(mediaUploadPath), contentType, body)
	if err != nil {
		return nil, requestError(handleNetworkError(err), errors.CategoryMediaUpload, "upload_media", mediaUploadPath)
	}

	// 200 means processed, 202 means processing continues in the background
	accepted := resp.StatusCode == http.StatusAccepted
	var attachment Attachment
	if err := decodeResponse(resp, &attachment); err != nil {
		return nil, requestError(err, errors.CategoryMediaUpload, "upload_media", mediaUploadPath)
	}

	GetLogger().Info("Media uploaded",
		logger.String("media_id", attachment.ID),
		logger.String("mime_type", upload.MimeType),
		logger.Int("bytes", len(upload.Data)),
		logger.Bool("processing", accepted && !attachment.Processed()),
		logger.Duration("elapsed", time.Since(start)))

	if !upload.Synchronous || !accepted || attachment.Processed() {
		return &attachment, nil
	}

	ready, err := c.waitForProcessing(ctx, attachment.ID)
	if err != nil {
		return nil, requestError(err, errors.CategoryMediaUpload, "wait_for_processing", mediaPath+attachment.ID)
	}
	return ready, nil
}

// multipartBody encodes the file part with its declared content type.
func multipartBody(upload MediaUpload) (*bytes.Buffer, string, error) {
	fileName := upload.FileName
	if fileName == "" {
		fileName = "sound"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", upload.MimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("mastodon: failed to create file part: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", fmt.Errorf("mastodon: failed to write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("mastodon: failed to finalize multipart body: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// waitForProcessing polls the media until it is processed. Polls are paced
// by a limiter at the poll interval and bounded by the processing timeout.
func (c *Client) waitForProcessing(ctx context.Context, id string) (*Attachment, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.processingTimeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)
	limiter.Allow() // the upload itself used the first slot

	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(waitCtx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: media %s after %s", ErrProcessingTimeout, id, c.processingTimeout)
		}

		attachment, done, err := c.getMedia(waitCtx, id)
		if err != nil {
			if ctx.Err() == nil && waitCtx.Err() != nil {
				return nil, fmt.Errorf("%w: media %s after %s", ErrProcessingTimeout, id, c.processingTimeout)
			}
			return nil, err
		}
		if done {
			GetLogger().Debug("Media processed",
				logger.String("media_id", id),
				logger.Int("polls", attempt))
			return attachment, nil
		}
	}
}

// getMedia fetches the media state. 206 means still processing.
func (c *Client) getMedia(ctx context.Context, id string) (_ *Attachment, _ bool, err error) {
	defer func(start time.Time) { c.observe(metrics.OpMediaGet, start, err) }(time.Now())

	resp, err := c.http.Get(ctx, c.endpoint(mediaPath+url.PathEscape(id)))
	if err != nil {
		return nil, false, handleNetworkError(err)
	}

	processing := resp.StatusCode == http.StatusPartialContent
	var attachment Attachment
	if err := decodeResponse(resp, &attachment); err != nil {
		return nil, false, err
	}
	return &attachment, !processing && attachment.Processed(), nil
}

// UpdateMediaDescription sets the alt text of an uploaded attachment.
func (c *Client) UpdateMediaDescription(ctx context.Context, id, description string) (_ *Attachment, err error) {
	defer func(start time.Time) { c.observe(metrics.OpMediaUpdate, start, err) }(time.Now())

	endpoint := mediaPath + url.PathEscape(id)
	form := url.Values{"description": {description}}

	resp, err := c.http.Put(ctx, c.endpoint(endpoint), "application/x-www-form-urlencoded", form.Encode())
	if err != nil {
		return nil, requestError(handleNetworkError(err), errors.CategoryMediaDescribe, "update_media", endpoint)
	}

	var attachment Attachment
	if err := decodeResponse(resp, &attachment); err != nil {
		return nil, requestError(err, errors.CategoryMediaDescribe, "update_media", endpoint)
	}

	GetLogger().Debug("Media description updated", logger.String("media_id", id))
	return &attachment, nil
}
