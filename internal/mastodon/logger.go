package mastodon

import "github.com/asterisksounds/asterisk-sound-bot/internal/logger"

// GetLogger returns the mastodon package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mastodon")
}
