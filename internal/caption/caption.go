// Package caption builds the status text and media description of a post.
package caption

import (
	"fmt"

	"github.com/asterisksounds/asterisk-sound-bot/internal/catalog"
	"github.com/asterisksounds/asterisk-sound-bot/internal/locale"
)

const (
	altTextFormat = `A telephone interactive voice response (IVR) system saying "%s" in %s`

	// Rendered verbatim by the social network; keep the glyphs and blank line.
	statusTextFormat = "\"%s\"\n\n*️⃣ Asterisk sound '%s'\n📦 From package '%s'\n%s Spoken in %s"
)

// Caption is the text published with one sound.
type Caption struct {
	StatusText string `yaml:"status_text"`
	AltText    string `yaml:"alt_text"`
}

// Compose renders the caption for an already validated record and locale.
func Compose(record catalog.Record, loc locale.Locale) Caption {
	return Caption{
		StatusText: fmt.Sprintf(statusTextFormat,
			record.Transcription,
			record.DisplayFileName(),
			record.PackageName(),
			loc.Flag,
			loc.DisplayName),
		AltText: fmt.Sprintf(altTextFormat, record.Transcription, loc.DisplayName),
	}
}
