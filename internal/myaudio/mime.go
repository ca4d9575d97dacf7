package myaudio

import (
	"path"
	"strings"
)

// DefaultMimeType is declared for every sound whose extension is not a
// Mastodon-accepted audio type. Asterisk's native formats (gsm, ulaw, alaw,
// sln) all land here.
const DefaultMimeType = "audio/wav"

var mimeTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
}

// MimeType returns the content type to declare when uploading the object at key.
func MimeType(key string) string {
	if mt, ok := mimeTypes[strings.ToLower(path.Ext(key))]; ok {
		return mt
	}
	return DefaultMimeType
}

// GetFileExtension returns the canonical extension, without dot, for a content type.
func GetFileExtension(mimeType string) string {
	switch mimeType {
	case "audio/mpeg":
		return "mp3"
	case "audio/ogg":
		return "ogg"
	case "audio/flac":
		return "flac"
	default:
		return "wav"
	}
}
