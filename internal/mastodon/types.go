package mastodon

import (
	"strings"
	"time"

	"github.com/k3a/html2text"
)

// MediaUpload is the payload of UploadMedia.
type MediaUpload struct {
	Data     []byte
	FileName string
	MimeType string
	// Synchronous makes UploadMedia wait until the server has processed the
	// media, so the returned attachment can be used in a status right away.
	Synchronous bool
}

// Attachment is a media attachment as returned by the API.
type Attachment struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	PreviewURL  string `json:"preview_url"`
	Description string `json:"description"`
}

// Processed reports whether the server has finished processing the media.
// Attachments still being processed have no URL.
func (a *Attachment) Processed() bool {
	return a.URL != ""
}

// StatusPost is the payload of CreateStatus.
type StatusPost struct {
	Text       string
	MediaIDs   []string
	Visibility string
	Language   string // ISO 639 code, empty lets the server detect it
	// IdempotencyKey makes a repeated request with the same key return the
	// first status instead of posting twice.
	IdempotencyKey string
}

// Status is a posted status.
type Status struct {
	ID               string       `json:"id"`
	URI              string       `json:"uri"`
	URL              string       `json:"url"`
	Content          string       `json:"content"`
	Visibility       string       `json:"visibility"`
	Language         string       `json:"language"`
	CreatedAt        time.Time    `json:"created_at"`
	MediaAttachments []Attachment `json:"media_attachments"`
}

// PlainText returns the status content with the server's HTML removed.
func (s *Status) PlainText() string {
	return strings.TrimSpace(html2text.HTML2Text(s.Content))
}
