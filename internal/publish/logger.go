package publish

import "github.com/asterisksounds/asterisk-sound-bot/internal/logger"

// GetLogger returns the publish package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("publish")
}
